package assistant

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clinicasanmiguel/riley/internal/slots"
)

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

// Responder turns a conversation turn into a model reply, degrading to a
// canned apology when the model is unavailable.
type Responder struct {
	client LLMClient
	clinic ClinicContext
	logger *slog.Logger
}

func NewResponder(client LLMClient, clinic ClinicContext, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{client: client, clinic: clinic, logger: logger}
}

// Turn is one inbound message plus everything the responder needs to ground
// the reply.
type Turn struct {
	History []ChatMessage
	Message string
	Slots   slots.State
	Patient *PatientContext
}

// Reply produces the assistant's reply for a turn. When the model fails it
// returns the apology text with degraded=true; the error is logged, never
// surfaced to the caller.
func (r *Responder) Reply(ctx context.Context, turn Turn) (reply string, degraded bool) {
	req := LLMRequest{
		System:      BuildSystemPrompt(r.clinic, turn.Slots, turn.Patient),
		Messages:    append(append([]ChatMessage{}, turn.History...), ChatMessage{Role: ChatRoleUser, Content: turn.Message}),
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		lang := ""
		if turn.Patient != nil {
			lang = turn.Patient.PreferredLanguage
		}
		if errors.Is(err, ErrUpstream) {
			r.logger.Error("assistant: model unavailable, degrading", "error", err)
		} else {
			r.logger.Error("assistant: completion failed", "error", err)
		}
		return ApologyMessage(lang, r.clinic.PhoneDisplay), true
	}
	if resp.Text == "" {
		r.logger.Warn("assistant: empty completion", "stop_reason", resp.StopReason)
		return ApologyMessage("", r.clinic.PhoneDisplay), true
	}
	return resp.Text, false
}
