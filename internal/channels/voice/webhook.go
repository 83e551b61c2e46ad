package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/intent"
	"github.com/clinicasanmiguel/riley/internal/interactions"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/internal/slots"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

// WebhookHandler receives Vapi call events. Vapi is inconsistent about where
// it puts things, so every field is probed across the payload shapes seen in
// production.
type WebhookHandler struct {
	calls    CallStore
	resolver *patients.Resolver
	appts    *appointments.Service
	audit    *interactions.Logger
	logger   *logging.Logger
	now      func() time.Time
}

func NewWebhookHandler(calls CallStore, resolver *patients.Resolver, appts *appointments.Service, audit *interactions.Logger, logger *logging.Logger) *WebhookHandler {
	if calls == nil {
		panic("voice: call store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		calls:    calls,
		resolver: resolver,
		appts:    appts,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one Vapi event. Unknown events are acknowledged so Vapi
// does not retry them.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid webhook payload"})
		return
	}

	eventType := digString(body, "type")
	if eventType == "" {
		eventType = digString(body, "message", "type")
	}

	ctx := r.Context()
	switch eventType {
	case "end-of-call-report":
		h.handleCallEnd(ctx, body)
	case "status-update":
		if digString(body, "message", "status") == "started" {
			h.handleCallStart(ctx, body)
		}
	case "conversation-update":
		h.handleConversationUpdate(ctx, body)
	case "speech-update":
		h.handleSpeechUpdate(ctx, body)
	case "transcript":
		h.handleTranscript(ctx, body)
	case "function-call", "tool-calls":
		// Function calls arrive on their own endpoint; here we only ack.
		h.logger.Info("vapi function-call event acknowledged")
	default:
		h.logger.Info("unhandled vapi event", "event_type", eventType)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// callInfo probes the call object across the shapes Vapi uses.
func callInfo(body map[string]any) (callID, phone string) {
	call := digMap(body, "call")
	if call == nil {
		call = digMap(body, "message", "call")
	}
	if call == nil {
		return "", ""
	}
	callID = digString(call, "id")
	phone = digString(call, "customer", "number")
	if phone == "" {
		phone = digString(call, "phoneNumber")
	}
	return callID, phone
}

func (h *WebhookHandler) handleCallStart(ctx context.Context, body map[string]any) {
	callID, phone := callInfo(body)
	if callID == "" {
		return
	}

	call := &Call{CallID: callID, Phone: phone}
	if phone != "" && phone != "unknown" {
		if patient, err := h.resolver.Resolve(ctx, phone, patients.Fields{}, patients.ChannelVoice); err == nil {
			call.PatientID = patient.ID
		} else {
			h.logger.Warn("voice patient resolution failed", "call_id", callID, "error", err)
		}
	}
	if err := h.calls.Start(ctx, call); err != nil {
		h.logger.Error("voice call start failed", "call_id", callID, "error", err)
		return
	}

	h.log(ctx, &interactions.Interaction{
		SessionID:   callID,
		PatientID:   call.PatientID,
		Channel:     "voice",
		Direction:   interactions.DirectionInbound,
		FromNumber:  phone,
		MessageBody: "Voice call started",
		Metadata:    map[string]any{"call_id": callID, "event": "status-update"},
	})
}

func (h *WebhookHandler) handleConversationUpdate(ctx context.Context, body map[string]any) {
	callID, _ := callInfo(body)
	conv := digSlice(body, "message", "conversation")
	if callID == "" || len(conv) == 0 {
		return
	}
	last, ok := conv[len(conv)-1].(map[string]any)
	if !ok {
		return
	}
	text := digString(last, "content")
	if text == "" {
		text = digString(last, "message")
	}
	h.recordLine(ctx, callID, digString(last, "role"), text, "conversation-update")
}

func (h *WebhookHandler) handleSpeechUpdate(ctx context.Context, body map[string]any) {
	callID, _ := callInfo(body)
	text := digString(body, "message", "transcript")
	if text == "" {
		text = digString(body, "message", "speech")
	}
	h.recordLine(ctx, callID, digString(body, "message", "role"), text, "speech-update")
}

func (h *WebhookHandler) handleTranscript(ctx context.Context, body map[string]any) {
	callID, _ := callInfo(body)
	text := digString(body, "transcript", "text")
	role := digString(body, "transcript", "role")
	if text == "" {
		text = digString(body, "message", "transcript")
		role = digString(body, "message", "role")
	}
	h.recordLine(ctx, callID, role, text, "transcript")
}

// recordLine appends one utterance to the call and mirrors it into the
// immutable interactions log.
func (h *WebhookHandler) recordLine(ctx context.Context, callID, role, text, event string) {
	if callID == "" || strings.TrimSpace(text) == "" {
		return
	}
	if role == "" {
		role = "assistant"
	}

	if err := h.calls.AppendLine(ctx, callID, TranscriptLine{Role: role, Text: text}); err != nil {
		// Progress events can arrive before the status-update that starts
		// the call; start it implicitly.
		if err == ErrCallNotFound {
			if err := h.calls.Start(ctx, &Call{CallID: callID}); err == nil {
				err = h.calls.AppendLine(ctx, callID, TranscriptLine{Role: role, Text: text})
			}
		}
		if err != nil {
			h.logger.Error("voice transcript append failed", "call_id", callID, "error", err)
		}
	}

	direction := interactions.DirectionOutbound
	if role == "user" {
		direction = interactions.DirectionInbound
	}
	h.log(ctx, &interactions.Interaction{
		SessionID:   callID,
		Channel:     "voice",
		Direction:   direction,
		MessageBody: text,
		Metadata:    map[string]any{"call_id": callID, "event": event, "role": role},
	})
}

func (h *WebhookHandler) handleCallEnd(ctx context.Context, body map[string]any) {
	callID, phone := callInfo(body)
	if callID == "" {
		callID = digString(body, "message", "id")
	}
	if callID == "" {
		return
	}

	endedReason := digString(body, "message", "endedReason")
	summary := digString(body, "message", "summary")
	duration := int(digFloat(body, "message", "duration"))

	call, err := h.calls.Get(ctx, callID)
	if err != nil {
		call = &Call{CallID: callID, Phone: phone}
		if err := h.calls.Start(ctx, call); err != nil {
			h.logger.Error("voice call-end backfill failed", "call_id", callID, "error", err)
		}
	}
	if phone == "" {
		phone = call.Phone
	}
	if err := h.calls.Finish(ctx, callID, endedReason, summary, duration); err != nil {
		h.logger.Error("voice call finish failed", "call_id", callID, "error", err)
	}

	// Mine the caller's side of the conversation for identity and booking
	// slots, then backfill the patient record.
	fullText := call.UserText()
	if fullText == "" {
		fullText = summary
	}
	mined := slots.Extract(fullText, h.now())

	var patientID string
	if phone != "" && phone != "unknown" {
		first, last := slots.SplitName(mined.Name)
		patient, err := h.resolver.Resolve(ctx, phone, patients.Fields{
			FirstName:   first,
			LastName:    last,
			Email:       mined.Email,
			DateOfBirth: mined.DateOfBirth,
		}, patients.ChannelVoice)
		if err != nil {
			h.logger.Warn("voice call-end patient resolution failed", "call_id", callID, "error", err)
		} else {
			patientID = patient.ID
		}
	}

	detected := intent.Classify(fullText, mined)
	h.log(ctx, &interactions.Interaction{
		SessionID:   callID,
		PatientID:   patientID,
		Channel:     "voice",
		Direction:   interactions.DirectionInbound,
		FromNumber:  phone,
		MessageBody: callEndBody(summary, endedReason, duration),
		Intent:      detected.Label(),
		Metadata: map[string]any{
			"call_id":          callID,
			"event":            "end-of-call-report",
			"ended_reason":     endedReason,
			"duration_seconds": duration,
		},
	})

	if detected != intent.Book || patientID == "" || h.appts == nil {
		return
	}

	// Retroactive booking: the assistant agreed to a time during the call.
	date := mined.Date
	if date == "" {
		date = h.now().AddDate(0, 0, 1).Format("2006-01-02")
	}
	clock := mined.Time
	if clock == "" {
		clock = "10:00 AM"
	}
	res, err := h.appts.Book(ctx, appointments.BookRequest{
		PatientID:   patientID,
		Source:      appointments.SourceVoice,
		Date:        date,
		Time:        clock,
		ServiceType: mined.ServiceType,
		SessionID:   callID,
	})
	if err != nil {
		h.logger.Error("voice retroactive booking failed", "call_id", callID, "error", err)
		return
	}
	h.logger.Info("voice booking created",
		"call_id", callID,
		"appointment_id", res.Appointment.ID,
		"code", res.Appointment.ConfirmationCode,
	)
}

func (h *WebhookHandler) log(ctx context.Context, rec *interactions.Interaction) {
	if h.audit == nil {
		return
	}
	h.audit.Log(ctx, rec)
}

func callEndBody(summary, reason string, duration int) string {
	if summary != "" {
		return summary
	}
	if reason == "" {
		reason = "completed"
	}
	return fmt.Sprintf("Voice call ended: %s (%ds)", reason, duration)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
