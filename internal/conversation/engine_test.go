package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/assistant"
	"github.com/clinicasanmiguel/riley/internal/clinics"
	"github.com/clinicasanmiguel/riley/internal/intent"
	"github.com/clinicasanmiguel/riley/internal/interactions"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/internal/session"
)

type scriptedClient struct{ text string }

func (c *scriptedClient) Complete(ctx context.Context, req assistant.LLMRequest) (assistant.LLMResponse, error) {
	return assistant.LLMResponse{Text: c.text}, nil
}

type engineFixture struct {
	engine   *Engine
	patients *patients.InMemoryRepository
	appts    *appointments.InMemoryRepository
	audit    *interactions.InMemoryStore
	sessions *session.InMemoryStore
}

var engineNow = time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	patientRepo := patients.NewInMemoryRepository()
	apptRepo := appointments.NewInMemoryRepository()
	clinicRepo := clinics.NewInMemoryRepository(&clinics.Clinic{
		ID: "clinic-1", Name: "Clinica San Miguel Fresno", Active: true,
	})
	audit := interactions.NewInMemoryStore()
	auditLogger := interactions.NewLogger(audit, nil)
	svc := appointments.NewService(apptRepo, clinicRepo, patientRepo, auditLogger, nil)
	resolver := patients.NewResolver(patientRepo, nil)
	responder := assistant.NewResponder(&scriptedClient{text: "Could you share a few more details?"},
		assistant.ClinicContext{Name: "Clinica San Miguel", PhoneDisplay: "(415) 555-1000"}, nil)
	sessions := session.NewInMemoryStore(time.Hour)

	engine := NewEngine(sessions, resolver, svc, responder, auditLogger, nil)
	engine.now = func() time.Time { return engineNow }
	return &engineFixture{
		engine:   engine,
		patients: patientRepo,
		appts:    apptRepo,
		audit:    audit,
		sessions: sessions,
	}
}

func TestBookingFlowAcrossTurns(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.ProcessTurn(ctx, Turn{
		Channel: patients.ChannelSMS,
		From:    "+15551234567",
		Text:    "Hi, my name is John Smith and I need an appointment",
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, intent.Book, first.Intent)
	// Date and time still missing, so no booking yet.
	list, err := f.appts.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	second, err := f.engine.ProcessTurn(ctx, Turn{
		SessionID: first.SessionID,
		Channel:   patients.ChannelSMS,
		From:      "+15551234567",
		Text:      "tomorrow at 10am please",
	})
	require.NoError(t, err)
	assert.Equal(t, intent.Book, second.Intent)
	assert.InDelta(t, 0.9, second.Confidence, 0.001)
	assert.Contains(t, second.Message, "SMS-")

	list, err = f.appts.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, appointments.StatusConfirmed, list[0].Status)
	assert.Equal(t, "2026-08-30T10:00:00", list[0].WallClock())

	p, err := f.patients.GetByPhone(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", p.FullName())
	assert.Equal(t, p.ID, list[0].PatientID)
}

func TestCancelByCode(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// Seed a booked appointment the engine can cancel.
	p := &patients.Patient{FirstName: "John", LastName: "Smith", Phone: "+15551234567"}
	require.NoError(t, f.patients.Create(ctx, p))
	a := &appointments.Appointment{
		PatientID: p.ID, ClinicID: "clinic-1", Status: appointments.StatusConfirmed,
		AppointmentDate:  time.Date(2026, time.September, 15, 10, 0, 0, 0, time.UTC),
		ConfirmationCode: "SMS-12345",
	}
	require.NoError(t, f.appts.Create(ctx, a))

	reply, err := f.engine.ProcessTurn(ctx, Turn{
		Channel: patients.ChannelSMS,
		From:    "+15551234567",
		Text:    "I need to cancel my appointment SMS-12345, reason: can't make it",
	})
	require.NoError(t, err)
	assert.Equal(t, intent.Cancel, reply.Intent)
	assert.Contains(t, reply.Message, "cancelled")

	got, err := f.appts.GetByCode(ctx, "SMS-12345")
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCancelled, got.Status)
	// The patient's own reason lands in the notes.
	assert.Contains(t, got.Notes, "can't make it")

	// Exactly one outbound row for the mutation, tagged with the intent.
	var outbound []*interactions.Interaction
	for _, rec := range f.audit.All() {
		if rec.Direction == interactions.DirectionOutbound {
			outbound = append(outbound, rec)
		}
	}
	require.Len(t, outbound, 1)
	assert.Equal(t, "appointment_cancellation", outbound[0].Intent)
}

func TestCancelWithWrongCode(t *testing.T) {
	f := newEngineFixture(t)

	reply, err := f.engine.ProcessTurn(context.Background(), Turn{
		Channel: patients.ChannelWebChat,
		From:    "+15551234567",
		Text:    "cancel CHAT-99999",
	})
	require.NoError(t, err)
	assert.Contains(t, reply.Message, "couldn't find an appointment")
}

func TestGeneralInquiryFallsBackToModel(t *testing.T) {
	f := newEngineFixture(t)

	reply, err := f.engine.ProcessTurn(context.Background(), Turn{
		Channel: patients.ChannelWebChat,
		Text:    "do I need to fast before my visit?",
	})
	require.NoError(t, err)
	assert.Equal(t, intent.None, reply.Intent)
	assert.Equal(t, "Could you share a few more details?", reply.Message)
	assert.InDelta(t, 0.3, reply.Confidence, 0.001)
}

func TestCommonQuestionsAnsweredFromCache(t *testing.T) {
	f := newEngineFixture(t)

	reply, err := f.engine.ProcessTurn(context.Background(), Turn{
		Channel: patients.ChannelWebChat,
		Text:    "what are your hours?",
	})
	require.NoError(t, err)
	assert.Equal(t, intent.None, reply.Intent)
	// Answered from the FAQ cache, never touching the model.
	assert.Contains(t, reply.Message, "8:00 AM to 8:00 PM")
	assert.InDelta(t, 0.8, reply.Confidence, 0.001)
}

func TestCallerIDSeedsPhoneSlotAsDigits(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	reply, err := f.engine.ProcessTurn(ctx, Turn{
		Channel: patients.ChannelSMS,
		From:    "+15551234567",
		Text:    "hello there",
	})
	require.NoError(t, err)

	sess, err := f.sessions.Load(ctx, reply.SessionID)
	require.NoError(t, err)
	// Same form the extractor stores, so later turns never see two formats.
	assert.Equal(t, "5551234567", sess.Slots.Phone)
}

func TestSlotsPersistAcrossTurns(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.ProcessTurn(ctx, Turn{
		Channel: patients.ChannelWebChat,
		Text:    "my name is Maria Garcia, phone 555-987-6543",
	})
	require.NoError(t, err)

	sess, err := f.sessions.Load(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Garcia", sess.Slots.Name)
	assert.Equal(t, "5559876543", sess.Slots.Phone)
	require.Len(t, sess.History, 2)
}

func TestSpanishDetection(t *testing.T) {
	f := newEngineFixture(t)

	reply, err := f.engine.ProcessTurn(context.Background(), Turn{
		Channel: patients.ChannelWebChat,
		Text:    "¿Cuáles son sus horarios?",
	})
	require.NoError(t, err)
	assert.Equal(t, "es", reply.Language)
}

func TestInboundLoggedWithIntentLabel(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.ProcessTurn(context.Background(), Turn{
		Channel: patients.ChannelSMS,
		From:    "+15551234567",
		Text:    "I want to book an appointment",
	})
	require.NoError(t, err)

	recs := f.audit.All()
	require.NotEmpty(t, recs)
	assert.Equal(t, interactions.DirectionInbound, recs[0].Direction)
	assert.Equal(t, "appointment_booking", recs[0].Intent)
	assert.True(t, strings.HasPrefix(recs[0].FromNumber, "+1555"))
}
