package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinicasanmiguel/riley/internal/conversation"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

const consentRequest = "To receive texts from Clinica San Miguel, please reply YES to consent."

// telnyxEnvelope is the subset of the Telnyx webhook body we care about.
type telnyxEnvelope struct {
	Data struct {
		EventType string `json:"event_type"`
		Payload   struct {
			ID   string `json:"id"`
			From struct {
				PhoneNumber string `json:"phone_number"`
			} `json:"from"`
			To []struct {
				PhoneNumber string `json:"phone_number"`
			} `json:"to"`
			Text string `json:"text"`
		} `json:"payload"`
	} `json:"data"`
}

type turnProcessor interface {
	ProcessTurn(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error)
}

// WebhookHandler receives Telnyx message webhooks and replies over SMS.
type WebhookHandler struct {
	engine   turnProcessor
	resolver *patients.Resolver
	repo     patients.Repository
	sender   Sender
	logger   *logging.Logger
}

func NewWebhookHandler(engine turnProcessor, resolver *patients.Resolver, repo patients.Repository, sender Sender, logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		engine:   engine,
		resolver: resolver,
		repo:     repo,
		sender:   sender,
		logger:   logger,
	}
}

// Handle processes one webhook delivery. Only message.received events are
// acted on; everything else is acknowledged and dropped so Telnyx stops
// retrying.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var envelope telnyxEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid webhook payload"})
		return
	}

	eventType := envelope.Data.EventType
	if eventType != "message.received" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "event_type": eventType})
		return
	}

	payload := envelope.Data.Payload
	text := strings.TrimSpace(payload.Text)
	if payload.From.PhoneNumber == "" || text == "" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": "no text"})
		return
	}
	to := ""
	if len(payload.To) > 0 {
		to = payload.To[0].PhoneNumber
	}

	ctx := r.Context()
	patient, err := h.resolver.Resolve(ctx, payload.From.PhoneNumber, patients.Fields{}, patients.ChannelSMS)
	if err != nil {
		h.logger.Error("sms patient resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to process SMS webhook"})
		return
	}

	if !patient.ConsentSMS {
		if isAffirmativeConsent(text) {
			patient.ConsentSMS = true
			if err := h.repo.Update(ctx, patient); err != nil {
				h.logger.Error("consent update failed", "patient_id", patient.ID, "error", err)
			}
			h.send(ctx, payload.From.PhoneNumber, "Thank you! You're all set to receive texts from Clinica San Miguel. How can I help you today?")
			writeJSON(w, http.StatusOK, map[string]any{"status": "consent_granted"})
			return
		}
		// No consent: one consent request, nothing else. The message is not
		// merged, classified, or answered.
		h.send(ctx, payload.From.PhoneNumber, consentRequest)
		writeJSON(w, http.StatusOK, map[string]any{"status": "consent_required"})
		return
	}

	reply, err := h.engine.ProcessTurn(ctx, conversation.Turn{
		SessionID: "sms:" + patient.Phone,
		Channel:   patients.ChannelSMS,
		From:      payload.From.PhoneNumber,
		To:        to,
		Text:      text,
	})
	if err != nil {
		h.logger.Error("sms turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "failed to process SMS webhook"})
		return
	}

	h.send(ctx, payload.From.PhoneNumber, reply.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"session_id": reply.SessionID,
		"intent":     reply.Intent.Label(),
	})
}

func (h *WebhookHandler) send(ctx context.Context, to, text string) {
	if h.sender == nil {
		return
	}
	if err := h.sender.Send(ctx, to, text); err != nil {
		h.logger.Error("sms send failed", "to", to, "error", err)
	}
}

func isAffirmativeConsent(text string) bool {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "YES", "Y", "SI", "SÍ":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
