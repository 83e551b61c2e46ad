package handlers

import (
	"net/http"
	"strconv"

	"github.com/clinicasanmiguel/riley/internal/normalize"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

// PatientsHandler serves dashboard patient CRUD.
type PatientsHandler struct {
	repo   patients.Repository
	logger *logging.Logger
}

func NewPatientsHandler(repo patients.Repository, logger *logging.Logger) *PatientsHandler {
	if repo == nil {
		panic("handlers: patient repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{repo: repo, logger: logger}
}

type createPatientRequest struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	DateOfBirth       string `json:"dateOfBirth"`
	PreferredLanguage string `json:"preferredLanguage"`
	ConsentSMS        bool   `json:"consentSms"`
	ConsentVoice      bool   `json:"consentVoice"`
}

// Create registers a patient. POST /patients
func (h *PatientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" {
		respondError(w, http.StatusBadRequest, "phone is required")
		return
	}
	if req.PreferredLanguage == "" {
		req.PreferredLanguage = "en"
	}

	p := &patients.Patient{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             normalize.Phone(req.Phone),
		Email:             req.Email,
		DateOfBirth:       req.DateOfBirth,
		PreferredLanguage: req.PreferredLanguage,
		ConsentSMS:        req.ConsentSMS,
		ConsentVoice:      req.ConsentVoice,
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		h.logger.Error("patient create failed", "error", err)
		respondServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"patient": p}, "")
}

// List returns recent patients. GET /patients
func (h *PatientsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	list, err := h.repo.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"patients": list}, "")
}
