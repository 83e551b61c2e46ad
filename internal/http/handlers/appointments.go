package handlers

import (
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/normalize"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/internal/slots"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

// AppointmentsHandler serves the appointment action endpoints. Every channel
// funnels through the same lifecycle service; these are the direct HTTP
// entrances used by the dashboard and confirmation links.
type AppointmentsHandler struct {
	svc      *appointments.Service
	resolver *patients.Resolver
	repo     patients.Repository
	logger   *logging.Logger
}

func NewAppointmentsHandler(svc *appointments.Service, resolver *patients.Resolver, repo patients.Repository, logger *logging.Logger) *AppointmentsHandler {
	if svc == nil {
		panic("handlers: appointments service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{svc: svc, resolver: resolver, repo: repo, logger: logger}
}

type bookRequest struct {
	PatientID   string `json:"patientId"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ServiceType string `json:"serviceType"`
}

type actionRequest struct {
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	ConfirmationCode string `json:"confirmationCode"`
	AppointmentID    string `json:"appointmentId"`
	Reason           string `json:"reason"`
	NewDate          string `json:"newDate"`
	NewTime          string `json:"newTime"`
}

type appointmentData struct {
	AppointmentID    string                    `json:"appointmentId"`
	ConfirmationCode string                    `json:"confirmationCode"`
	Appointment      *appointments.Appointment `json:"appointment"`
}

// Book creates an appointment. POST /appointments/book
func (h *AppointmentsHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	patientID := req.PatientID
	if patientID == "" {
		if req.Phone == "" {
			respondError(w, http.StatusBadRequest, "patientId or phone is required")
			return
		}
		first, last := slots.SplitName(req.Name)
		p, err := h.resolver.Resolve(ctx, req.Phone, patients.Fields{
			FirstName: first,
			LastName:  last,
			Email:     req.Email,
		}, patients.ChannelWebChat)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		patientID = p.ID
	}

	res, err := h.svc.Book(ctx, appointments.BookRequest{
		PatientID:   patientID,
		Source:      appointments.SourceWebChat,
		Date:        req.Date,
		Time:        req.Time,
		ServiceType: req.ServiceType,
		SessionID:   apiSessionID(r),
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, resultData(res), res.Message)
}

// Confirm transitions a scheduled appointment to confirmed.
// POST /appointments/confirm
func (h *AppointmentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	_, ref, ok := h.decodeAction(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Confirm(r.Context(), ref, apiSessionID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, resultData(res), res.Message)
}

// Cancel cancels an appointment, scoped to the requesting patient's phone.
// POST /appointments/cancel
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ref, ok := h.decodeAction(w, r)
	if !ok {
		return
	}
	patientID, ok := h.patientForContact(w, r, req.Phone, req.Email)
	if !ok {
		return
	}

	res, err := h.svc.Cancel(r.Context(), patientID, ref, req.Reason, apiSessionID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, resultData(res), res.Message)
}

// Reschedule moves an appointment to a new date/time.
// POST /appointments/reschedule
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	req, ref, ok := h.decodeAction(w, r)
	if !ok {
		return
	}
	patientID, ok := h.patientForContact(w, r, req.Phone, req.Email)
	if !ok {
		return
	}

	res, err := h.svc.Reschedule(r.Context(), patientID, ref, req.NewDate, req.NewTime, req.Reason, apiSessionID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, resultData(res), res.Message)
}

// Delete permanently removes an appointment record.
// POST /appointments/delete
func (h *AppointmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ref, ok := h.decodeAction(w, r)
	if !ok {
		return
	}
	patientID, ok := h.patientForContact(w, r, req.Phone, req.Email)
	if !ok {
		return
	}

	res, err := h.svc.Delete(r.Context(), patientID, ref, req.Reason, apiSessionID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, nil, res.Message)
}

// Find returns upcoming appointments by confirmation code or phone.
// POST /appointments/find
func (h *AppointmentsHandler) Find(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	phone := ""
	if req.Phone != "" {
		phone = normalize.Phone(req.Phone)
	}
	list, err := h.svc.FindUpcoming(r.Context(), phone, strings.ToUpper(strings.TrimSpace(req.ConfirmationCode)))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"appointments": list}, "")
}

// List returns recent appointments. GET /appointments
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	list, err := h.svc.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondOK(w, map[string]any{"appointments": list}, "")
}

func (h *AppointmentsHandler) decodeAction(w http.ResponseWriter, r *http.Request) (actionRequest, string, bool) {
	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return req, "", false
	}
	ref := strings.TrimSpace(req.ConfirmationCode)
	if ref == "" {
		ref = strings.TrimSpace(req.AppointmentID)
	}
	if ref == "" {
		respondError(w, http.StatusBadRequest, "confirmationCode or appointmentId is required")
		return req, "", false
	}
	return req, ref, true
}

// patientForContact scopes mutations to the caller's own appointments,
// resolving by phone first and email second. A request with neither is
// trusted dashboard traffic and goes unscoped.
func (h *AppointmentsHandler) patientForContact(w http.ResponseWriter, r *http.Request, phone, email string) (string, bool) {
	if h.repo == nil || (phone == "" && email == "") {
		return "", true
	}
	var (
		p   *patients.Patient
		err error
	)
	if phone != "" {
		p, err = h.repo.GetByPhone(r.Context(), normalize.Phone(phone))
	} else {
		p, err = h.repo.GetByEmail(r.Context(), email)
	}
	if err != nil {
		respondServiceError(w, err)
		return "", false
	}
	return p.ID, true
}

func resultData(res *appointments.Result) *appointmentData {
	if res.Appointment == nil {
		return nil
	}
	return &appointmentData{
		AppointmentID:    res.Appointment.ID,
		ConfirmationCode: res.Appointment.ConfirmationCode,
		Appointment:      res.Appointment,
	}
}

func apiSessionID(r *http.Request) string {
	if id := chimw.GetReqID(r.Context()); id != "" {
		return "api:" + id
	}
	return "api"
}
