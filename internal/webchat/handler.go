// Package webchat serves the website chat widget. The adapter only does
// shape translation; everything else happens in the conversation engine.
package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clinicasanmiguel/riley/internal/conversation"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

type turnProcessor interface {
	ProcessTurn(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error)
}

// Handler answers POST /chat synchronously.
type Handler struct {
	engine turnProcessor
	logger *logging.Logger
}

func NewHandler(engine turnProcessor, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("webchat: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Phone     string `json:"phone"`
}

type chatResponse struct {
	Message    string  `json:"message"`
	SessionID  string  `json:"sessionId"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// HandleChat runs one widget message through the engine. The session id is
// server-generated on the first turn and echoed back for the widget to keep.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "message is required",
		})
		return
	}

	reply, err := h.engine.ProcessTurn(r.Context(), conversation.Turn{
		SessionID: req.SessionID,
		Channel:   patients.ChannelWebChat,
		From:      req.Phone,
		Text:      req.Message,
	})
	if err != nil {
		h.logger.Error("webchat turn failed", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to process message",
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:    reply.Message,
		SessionID:  reply.SessionID,
		Intent:     reply.Intent.Label(),
		Confidence: reply.Confidence,
		Language:   reply.Language,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
