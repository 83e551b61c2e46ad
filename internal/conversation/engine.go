// Package conversation runs the turn pipeline shared by every channel:
// accumulate slots, classify intent, execute the mutation the caller asked
// for, and fall back to the language model for everything else.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/assistant"
	"github.com/clinicasanmiguel/riley/internal/intent"
	"github.com/clinicasanmiguel/riley/internal/interactions"
	"github.com/clinicasanmiguel/riley/internal/observability/metrics"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/internal/session"
	"github.com/clinicasanmiguel/riley/internal/slots"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

// Turn is one inbound message on any channel.
type Turn struct {
	SessionID string
	Channel   patients.Channel
	From      string
	To        string
	Text      string
}

// Reply is what goes back to the caller.
type Reply struct {
	SessionID  string
	Message    string
	Intent     intent.Intent
	Confidence float64
	Language   string

	// mutated marks replies whose outbound interaction row was already
	// written by the appointments service.
	mutated bool
}

// Engine wires the pipeline stages together. The model only ever produces
// conversational text; all appointment mutations go through the service.
type Engine struct {
	sessions  session.Store
	resolver  *patients.Resolver
	appts     *appointments.Service
	responder *assistant.Responder
	audit     *interactions.Logger
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics
	now       func() time.Time
}

func NewEngine(sessions session.Store, resolver *patients.Resolver, appts *appointments.Service, responder *assistant.Responder, audit *interactions.Logger, logger *logging.Logger) *Engine {
	if sessions == nil {
		panic("conversation: session store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		sessions:  sessions,
		resolver:  resolver,
		appts:     appts,
		responder: responder,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// SetMetrics attaches Prometheus instrumentation to the pipeline.
func (e *Engine) SetMetrics(m *metrics.ConversationMetrics) {
	e.metrics = m
}

var spanishRE = regexp.MustCompile(`(?i)[áéíóúñ¿¡]`)

// ProcessTurn runs one message through the pipeline and returns the reply.
// Handlers are synchronous per request, so turns within one session are
// processed in arrival order.
func (e *Engine) ProcessTurn(ctx context.Context, turn Turn) (*Reply, error) {
	start := time.Now()
	sess := e.loadSession(ctx, turn)

	extracted := slots.Extract(turn.Text, e.now())
	sess.Slots.Merge(extracted)
	if turn.From != "" && sess.Slots.Phone == "" {
		// Caller id arrives E.164; the slot holds the 10-digit form.
		sess.Slots.Phone = slots.PhoneDigits(turn.From)
	}

	detected := intent.Classify(turn.Text, sess.Slots)
	language := "en"
	if spanishRE.MatchString(turn.Text) {
		language = "es"
	}

	e.logInbound(ctx, sess, turn, detected)

	reply := &Reply{SessionID: sess.ID, Intent: detected, Language: language}
	switch detected {
	case intent.Book:
		e.handleBook(ctx, sess, turn, reply)
	case intent.Cancel:
		e.handleCancel(ctx, sess, turn, reply)
	case intent.Reschedule:
		e.handleReschedule(ctx, sess, turn, reply)
	default:
		e.respond(ctx, sess, turn, reply)
	}

	sess.AppendTurn(turn.Text, reply.Message)
	if err := e.sessions.Save(ctx, sess); err != nil {
		e.logger.Warn("session save failed", "session_id", sess.ID, "error", err)
	}
	e.logOutbound(ctx, sess, turn, reply)
	e.metrics.ObserveTurn(string(turn.Channel), detected.Label(), time.Since(start).Seconds())
	return reply, nil
}

func (e *Engine) loadSession(ctx context.Context, turn Turn) *session.Session {
	if turn.SessionID != "" {
		sess, err := e.sessions.Load(ctx, turn.SessionID)
		if err == nil {
			return sess
		}
		if !errors.Is(err, session.ErrNotFound) {
			e.logger.Warn("session load failed", "session_id", turn.SessionID, "error", err)
		}
		// Unknown or expired id: start fresh under the same id so the
		// client's reference stays valid.
		sess = session.New(string(turn.Channel))
		sess.ID = turn.SessionID
		return sess
	}
	return session.New(string(turn.Channel))
}

func (e *Engine) handleBook(ctx context.Context, sess *session.Session, turn Turn, reply *Reply) {
	if !sess.Slots.BookingComplete() {
		reply.Confidence = 0.6
		e.respond(ctx, sess, turn, reply)
		return
	}

	patient, err := e.resolvePatient(ctx, sess, turn)
	if err != nil {
		e.logger.Error("patient resolution failed", "session_id", sess.ID, "error", err)
		reply.Confidence = 0.6
		e.respond(ctx, sess, turn, reply)
		return
	}

	res, err := e.appts.Book(ctx, appointments.BookRequest{
		PatientID:   patient.ID,
		Source:      channelSource(turn.Channel),
		Date:        sess.Slots.Date,
		Time:        sess.Slots.Time,
		ServiceType: sess.Slots.ServiceType,
		SessionID:   sess.ID,
	})
	if err != nil {
		e.mutationFailed(ctx, sess, turn, reply, err, "book")
		return
	}

	e.metrics.ObserveMutation("book", "success")
	reply.Message = res.Message
	reply.Confidence = 0.9
	reply.mutated = true
	sess.Slots.ConfirmationCode = res.Appointment.ConfirmationCode
	// The booking consumed the collected date and time; clear them so a
	// follow-up "book another" starts clean.
	sess.Slots.Date = ""
	sess.Slots.Time = ""
}

func (e *Engine) handleCancel(ctx context.Context, sess *session.Session, turn Turn, reply *Reply) {
	code := sess.Slots.ConfirmationCode
	if code == "" {
		reply.Confidence = 0.6
		e.respond(ctx, sess, turn, reply)
		return
	}

	patient, err := e.resolvePatient(ctx, sess, turn)
	if err != nil {
		reply.Confidence = 0.6
		e.respond(ctx, sess, turn, reply)
		return
	}

	res, err := e.appts.Cancel(ctx, patient.ID, code, mutationReason(turn), sess.ID)
	if err != nil {
		e.mutationFailed(ctx, sess, turn, reply, err, "cancel")
		return
	}
	e.metrics.ObserveMutation("cancel", "success")
	reply.Message = res.Message
	reply.Confidence = 0.9
	reply.mutated = true
	sess.Slots.ConfirmationCode = ""
}

func (e *Engine) handleReschedule(ctx context.Context, sess *session.Session, turn Turn, reply *Reply) {
	code := sess.Slots.ConfirmationCode
	if code == "" || sess.Slots.Date == "" || sess.Slots.Time == "" {
		reply.Confidence = 0.6
		e.respond(ctx, sess, turn, reply)
		return
	}

	patient, err := e.resolvePatient(ctx, sess, turn)
	if err != nil {
		reply.Confidence = 0.6
		e.respond(ctx, sess, turn, reply)
		return
	}

	res, err := e.appts.Reschedule(ctx, patient.ID, code, sess.Slots.Date, sess.Slots.Time,
		mutationReason(turn), sess.ID)
	if err != nil {
		e.mutationFailed(ctx, sess, turn, reply, err, "reschedule")
		return
	}
	e.metrics.ObserveMutation("reschedule", "success")
	reply.Message = res.Message
	reply.Confidence = 0.9
	reply.mutated = true
	sess.Slots.Date = ""
	sess.Slots.Time = ""
}

// mutationFailed turns service errors into user-facing copy. Transition and
// validation rejections carry their own phrasing; anything else degrades to
// the model.
func (e *Engine) mutationFailed(ctx context.Context, sess *session.Session, turn Turn, reply *Reply, err error, action string) {
	if te, ok := appointments.IsTransitionError(err); ok {
		e.metrics.ObserveMutation(action, "rejected")
		reply.Message = te.Hint
		reply.Confidence = 0.9
		return
	}
	var ve *appointments.ValidationError
	if errors.As(err, &ve) {
		e.metrics.ObserveMutation(action, "rejected")
		reply.Message = fmt.Sprintf("I still need your %s to %s the appointment.", ve.Missing[0], action)
		reply.Confidence = 0.6
		return
	}
	if errors.Is(err, appointments.ErrNotFound) {
		e.metrics.ObserveMutation(action, "rejected")
		reply.Message = "I couldn't find an appointment with that confirmation code. Could you double-check it?"
		reply.Confidence = 0.9
		return
	}
	e.metrics.ObserveMutation(action, "error")
	e.logger.Error("appointment mutation failed", "action", action, "session_id", sess.ID, "error", err)
	e.respond(ctx, sess, turn, reply)
}

// mutationReason carries the patient's own words into the appointment notes
// when they gave any, falling back to the requesting channel.
func mutationReason(turn Turn) string {
	if reason := slots.Reason(turn.Text); reason != "" {
		return reason
	}
	return "requested via " + string(turn.Channel)
}

func (e *Engine) respond(ctx context.Context, sess *session.Session, turn Turn, reply *Reply) {
	if msg, ok := CheckFAQCache(turn.Text); ok {
		reply.Message = msg
		reply.Confidence = 0.8
		return
	}
	if e.responder == nil {
		reply.Message = "How can I help you with your appointment today?"
		if reply.Confidence == 0 {
			reply.Confidence = 0.3
		}
		return
	}

	var pc *assistant.PatientContext
	if patient, err := e.resolvePatient(ctx, sess, turn); err == nil && patient != nil {
		pc = &assistant.PatientContext{
			Name:              patient.FullName(),
			PreferredLanguage: patient.PreferredLanguage,
		}
	}

	msg, degraded := e.responder.Reply(ctx, assistant.Turn{
		History: sess.History,
		Message: turn.Text,
		Slots:   sess.Slots,
		Patient: pc,
	})
	reply.Message = msg
	if degraded {
		reply.Confidence = 0.2
	} else if reply.Confidence == 0 {
		reply.Confidence = 0.3
	}
}

// resolvePatient finds or creates the patient once per session and caches the
// id on the session.
func (e *Engine) resolvePatient(ctx context.Context, sess *session.Session, turn Turn) (*patients.Patient, error) {
	if e.resolver == nil {
		return nil, patients.ErrNotFound
	}
	phone := sess.Slots.Phone
	if phone == "" {
		phone = turn.From
	}
	first, last := slots.SplitName(sess.Slots.Name)
	patient, err := e.resolver.Resolve(ctx, phone, patients.Fields{
		FirstName:   first,
		LastName:    last,
		Email:       sess.Slots.Email,
		DateOfBirth: sess.Slots.DateOfBirth,
	}, turn.Channel)
	if err != nil {
		return nil, err
	}
	sess.PatientID = patient.ID
	return patient, nil
}

func (e *Engine) logInbound(ctx context.Context, sess *session.Session, turn Turn, detected intent.Intent) {
	if e.audit == nil {
		return
	}
	e.audit.Log(ctx, &interactions.Interaction{
		SessionID:   sess.ID,
		PatientID:   sess.PatientID,
		Channel:     string(turn.Channel),
		Direction:   interactions.DirectionInbound,
		FromNumber:  turn.From,
		ToNumber:    turn.To,
		MessageBody: turn.Text,
		Intent:      detected.Label(),
	})
}

func (e *Engine) logOutbound(ctx context.Context, sess *session.Session, turn Turn, reply *Reply) {
	if e.audit == nil || reply.mutated {
		return
	}
	e.audit.Log(ctx, &interactions.Interaction{
		SessionID:   sess.ID,
		PatientID:   sess.PatientID,
		Channel:     string(turn.Channel),
		Direction:   interactions.DirectionOutbound,
		FromNumber:  turn.To,
		ToNumber:    turn.From,
		MessageBody: reply.Message,
		Intent:      reply.Intent.Label(),
	})
}

func channelSource(c patients.Channel) appointments.Source {
	switch c {
	case patients.ChannelSMS:
		return appointments.SourceSMS
	case patients.ChannelVoice:
		return appointments.SourceVoice
	default:
		return appointments.SourceWebChat
	}
}
