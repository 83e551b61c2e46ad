package appointments

import (
	"time"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// WallClockLayout is the clinic-local timestamp format used everywhere an
// appointment time crosses a boundary. No timezone; the clinic's wall clock
// is the source of truth.
const WallClockLayout = "2006-01-02T15:04:05"

// DefaultDurationMinutes applies when a booking does not specify a duration.
const DefaultDurationMinutes = 30

// Appointment is one booked visit. The confirmation code is immutable and
// unique; notes are append-only.
type Appointment struct {
	ID               string     `json:"id"`
	PatientID        string     `json:"patient_id"`
	ClinicID         string     `json:"clinic_id"`
	AppointmentDate  time.Time  `json:"appointment_date"`
	DurationMinutes  int        `json:"duration_minutes"`
	ServiceType      string     `json:"service_type"`
	Status           Status     `json:"status"`
	ConfirmationCode string     `json:"confirmation_code"`
	Notes            string     `json:"notes,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// WallClock formats the appointment timestamp for user-facing copy and wire
// payloads.
func (a *Appointment) WallClock() string {
	return a.AppointmentDate.Format(WallClockLayout)
}
