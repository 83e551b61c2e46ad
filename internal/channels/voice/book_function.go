package voice

import (
	"net/http"

	"github.com/clinicasanmiguel/riley/internal/appointments"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/internal/slots"
)

// functionCallRequest is the Vapi tool-call envelope for the bookAppointment
// function.
type functionCallRequest struct {
	Message struct {
		FunctionCall struct {
			Name       string `json:"name"`
			Parameters struct {
				PatientName     string `json:"patientName"`
				PhoneNumber     string `json:"phoneNumber"`
				DateOfBirth     string `json:"dateOfBirth"`
				Email           string `json:"email"`
				AppointmentType string `json:"appointmentType"`
				AppointmentDate string `json:"appointmentDate"`
				AppointmentTime string `json:"appointmentTime"`
			} `json:"parameters"`
		} `json:"functionCall"`
	} `json:"message"`
}

type functionResult struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	AppointmentID    string `json:"appointmentId,omitempty"`
	ConfirmationCode string `json:"confirmationCode,omitempty"`
	PatientID        string `json:"patientId,omitempty"`
}

// HandleBookFunction serves the Vapi bookAppointment tool call. Vapi reads
// everything from the result object, so validation failures are reported
// there with a spoken-friendly message rather than an HTTP error.
func (h *WebhookHandler) HandleBookFunction(w http.ResponseWriter, r *http.Request) {
	var req functionCallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "no function call data provided"})
		return
	}

	params := req.Message.FunctionCall.Parameters
	if params.PatientName == "" || params.PhoneNumber == "" || params.AppointmentDate == "" || params.AppointmentTime == "" {
		writeJSON(w, http.StatusOK, map[string]any{"result": functionResult{
			Success: false,
			Message: "Missing required fields: patientName, phoneNumber, appointmentDate, or appointmentTime",
		}})
		return
	}

	ctx := r.Context()
	first, last := slots.SplitName(params.PatientName)
	patient, err := h.resolver.Resolve(ctx, params.PhoneNumber, patients.Fields{
		FirstName:   first,
		LastName:    last,
		Email:       params.Email,
		DateOfBirth: params.DateOfBirth,
	}, patients.ChannelVoice)
	if err != nil {
		h.logger.Error("voice function booking: patient resolution failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"result": functionResult{
			Success: false,
			Message: "Failed to create patient record",
		}})
		return
	}

	serviceType := params.AppointmentType
	if serviceType == "" {
		serviceType = "consultation"
	}
	res, err := h.appts.Book(ctx, appointments.BookRequest{
		PatientID:   patient.ID,
		Source:      appointments.SourceVoice,
		Date:        params.AppointmentDate,
		Time:        params.AppointmentTime,
		ServiceType: serviceType,
	})
	if err != nil {
		h.logger.Error("voice function booking failed", "patient_id", patient.ID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"result": functionResult{
			Success: false,
			Message: "Failed to create appointment",
		}})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": functionResult{
		Success:          true,
		Message:          res.Message + " Is there anything else I can help you with?",
		AppointmentID:    res.Appointment.ID,
		ConfirmationCode: res.Appointment.ConfirmationCode,
		PatientID:        patient.ID,
	}})
}
