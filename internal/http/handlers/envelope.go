// Package handlers exposes the REST surface consumed by the dashboard and
// the appointment action endpoints shared with the channel adapters.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/patients"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondOK(w http.ResponseWriter, data any, message string) {
	respond(w, http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, envelope{Success: false, Error: msg})
}

func respond(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondServiceError maps domain errors onto HTTP statuses. Lifecycle
// rejections and missing fields are the caller's fault; lookups that found
// nothing are 404; everything else is a 500 with a generic message.
func respondServiceError(w http.ResponseWriter, err error) {
	var ve *appointments.ValidationError
	if errors.As(err, &ve) {
		respondError(w, http.StatusBadRequest, ve.Error())
		return
	}
	if te, ok := appointments.IsTransitionError(err); ok {
		msg := te.Hint
		if msg == "" {
			msg = te.Error()
		}
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if errors.Is(err, appointments.ErrNotFound) {
		respondError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if errors.Is(err, patients.ErrNotFound) {
		respondError(w, http.StatusNotFound, "patient not found")
		return
	}
	if errors.Is(err, patients.ErrMissingPhone) {
		respondError(w, http.StatusBadRequest, "a valid phone number is required")
		return
	}
	respondError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
