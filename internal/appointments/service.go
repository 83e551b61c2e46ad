package appointments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/clinicasanmiguel/riley/internal/clinics"
	"github.com/clinicasanmiguel/riley/internal/interactions"
	"github.com/clinicasanmiguel/riley/internal/normalize"
	"github.com/clinicasanmiguel/riley/internal/patients"
	"github.com/clinicasanmiguel/riley/pkg/logging"
)

const maxCodeAttempts = 3

// Service owns the appointment lifecycle. Every successful mutation writes
// one outbound interaction row through the best-effort logger.
type Service struct {
	repo     Repository
	clinics  clinics.Repository
	patients patients.Repository
	audit    *interactions.Logger
	logger   *logging.Logger
	now      func() time.Time
}

func NewService(repo Repository, clinicRepo clinics.Repository, patientRepo patients.Repository, audit *interactions.Logger, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		clinics:  clinicRepo,
		patients: patientRepo,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

// Result pairs the updated record with copy ready to show the patient.
type Result struct {
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

// BookRequest carries everything needed to create an appointment. Date is
// YYYY-MM-DD; Time is clinic-local, 12-hour or 24-hour.
type BookRequest struct {
	PatientID   string
	Source      Source
	Date        string
	Time        string
	ServiceType string
	SessionID   string
}

// Book creates a new appointment directly in confirmed status; self-service
// bookings are the patient's own word, so there is nothing left to confirm.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Result, error) {
	var missing []string
	if req.PatientID == "" {
		missing = append(missing, "patient_id")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	if req.Source == "" {
		req.Source = SourceWebChat
	}

	clinic, err := s.clinics.FirstActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: clinic lookup: %w", err)
	}

	when, err := parseWallClock(req.Date, req.Time)
	if err != nil {
		return nil, &ValidationError{Missing: []string{"valid date and time"}}
	}

	a := &Appointment{
		PatientID:       req.PatientID,
		ClinicID:        clinic.ID,
		AppointmentDate: when,
		DurationMinutes: DefaultDurationMinutes,
		ServiceType:     req.ServiceType,
		Status:          StatusConfirmed,
	}
	for attempt := 0; ; attempt++ {
		a.ConfirmationCode = NewConfirmationCode(req.Source)
		err = s.repo.Create(ctx, a)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateCode) || attempt+1 >= maxCodeAttempts {
			return nil, err
		}
	}

	s.logger.Info("appointment booked",
		"appointment_id", a.ID,
		"patient_id", a.PatientID,
		"code", a.ConfirmationCode,
		"source", req.Source,
	)

	msg := fmt.Sprintf("Perfect! Your appointment is booked for %s at %s at %s. Your confirmation code is %s.",
		req.Date, req.Time, clinic.Name, a.ConfirmationCode)
	s.logMutation(ctx, req.SessionID, a, "appointment_booking", msg)
	return &Result{Message: msg, Appointment: a}, nil
}

// Confirm marks a scheduled appointment confirmed. Confirming an already
// confirmed appointment is a no-op success; confirmed_at keeps its original
// value, so duplicate webhook deliveries are harmless.
func (s *Service) Confirm(ctx context.Context, ref, sessionID string) (*Result, error) {
	a, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if a.Status == StatusConfirmed {
		return &Result{
			Message:     fmt.Sprintf("Your appointment %s is already confirmed. See you on %s!", a.ConfirmationCode, a.WallClock()),
			Appointment: a,
		}, nil
	}
	if a.Status != StatusScheduled {
		return nil, &TransitionError{Action: "confirm", From: a.Status,
			Hint: "This appointment can no longer be confirmed. Please book a new one."}
	}

	updated, err := s.repo.Confirm(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost the race: someone confirmed or cancelled in between.
		return s.afterRace(ctx, a.ID, "confirm")
	}

	a, err = s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment confirmed", "appointment_id", a.ID, "code", a.ConfirmationCode)

	msg := fmt.Sprintf("Your appointment %s is confirmed for %s. See you then!", a.ConfirmationCode, a.WallClock())
	s.logMutation(ctx, sessionID, a, "appointment_confirmation", msg)
	return &Result{Message: msg, Appointment: a}, nil
}

// Cancel cancels an appointment on behalf of the patient who owns it.
// Cancelling twice is an error: the second caller learns the appointment is
// already gone instead of silently succeeding.
func (s *Service) Cancel(ctx context.Context, patientID, ref, reason, sessionID string) (*Result, error) {
	a, err := s.resolveOwned(ctx, patientID, ref)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case StatusCancelled:
		return nil, &TransitionError{Action: "cancel", From: a.Status,
			Hint: "This appointment is already cancelled."}
	case StatusCompleted:
		return nil, &TransitionError{Action: "cancel", From: a.Status,
			Hint: "This appointment already took place."}
	}

	note := cancellationNote(reason, s.now())
	updated, err := s.repo.Cancel(ctx, a.ID, note)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.afterRace(ctx, a.ID, "cancel")
	}

	a, err = s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", a.ID, "code", a.ConfirmationCode)

	msg := fmt.Sprintf("Your appointment %s has been cancelled. We hope to see you again soon!", a.ConfirmationCode)
	s.logMutation(ctx, sessionID, a, "appointment_cancellation", msg)
	return &Result{Message: msg, Appointment: a}, nil
}

// Reschedule moves an appointment to a new date and time and resets it to
// scheduled. Cancelled and completed appointments cannot be rescheduled.
func (s *Service) Reschedule(ctx context.Context, patientID, ref, newDate, newTime, reason, sessionID string) (*Result, error) {
	a, err := s.resolveOwned(ctx, patientID, ref)
	if err != nil {
		return nil, err
	}
	if newDate == "" || newTime == "" {
		var missing []string
		if newDate == "" {
			missing = append(missing, "new_date")
		}
		if newTime == "" {
			missing = append(missing, "new_time")
		}
		return nil, &ValidationError{Missing: missing}
	}

	if a.Status == StatusCancelled || a.Status == StatusCompleted {
		return nil, &TransitionError{Action: "reschedule", From: a.Status,
			Hint: "This appointment cannot be moved. Please book a new one."}
	}

	when, err := parseWallClock(newDate, newTime)
	if err != nil {
		return nil, &ValidationError{Missing: []string{"valid new date and time"}}
	}

	note := fmt.Sprintf("Rescheduled from %s on %s", a.WallClock(), s.now().UTC().Format(time.RFC3339))
	if reason != "" {
		note += ": " + reason
	}
	updated, err := s.repo.Reschedule(ctx, a.ID, when, note)
	if err != nil {
		return nil, err
	}
	if !updated {
		return s.afterRace(ctx, a.ID, "reschedule")
	}

	a, err = s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", a.ID, "code", a.ConfirmationCode, "new_date", a.WallClock())

	msg := fmt.Sprintf("Your appointment %s has been moved to %s at %s.", a.ConfirmationCode, newDate, newTime)
	s.logMutation(ctx, sessionID, a, "appointment_reschedule", msg)
	return &Result{Message: msg, Appointment: a}, nil
}

// Delete removes the appointment row entirely. Completed appointments are
// kept for the record. The interaction row is written before the delete so
// the confirmation code survives the row's destruction.
func (s *Service) Delete(ctx context.Context, patientID, ref, reason, sessionID string) (*Result, error) {
	a, err := s.resolveOwned(ctx, patientID, ref)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCompleted {
		return nil, &TransitionError{Action: "delete", From: a.Status,
			Hint: "Completed appointments are kept on record and cannot be deleted."}
	}

	msg := fmt.Sprintf("Your appointment %s has been deleted.", a.ConfirmationCode)
	s.logMutation(ctx, sessionID, a, "appointment_deletion", msg)

	deleted, err := s.repo.Delete(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrConflict
	}
	s.logger.Info("appointment deleted", "appointment_id", a.ID, "code", a.ConfirmationCode, "reason", reason)
	return &Result{Message: msg}, nil
}

// FindUpcoming looks up upcoming appointments by confirmation code or by the
// patient's phone number.
func (s *Service) FindUpcoming(ctx context.Context, phone, code string) ([]*Appointment, error) {
	if code != "" {
		a, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		return []*Appointment{a}, nil
	}
	if phone == "" {
		return nil, &ValidationError{Missing: []string{"phone or confirmation_code"}}
	}
	if s.patients == nil {
		return nil, ErrNotFound
	}
	p, err := s.patients.GetByPhone(ctx, normalize.Phone(phone))
	if err != nil {
		if errors.Is(err, patients.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.repo.ListUpcomingByPatient(ctx, p.ID, s.now())
}

// Get returns one appointment by confirmation code or id.
func (s *Service) Get(ctx context.Context, ref string) (*Appointment, error) {
	return s.resolve(ctx, ref)
}

// List returns recent appointments for dashboard consumers.
func (s *Service) List(ctx context.Context, limit int) ([]*Appointment, error) {
	return s.repo.List(ctx, limit)
}

var codeRefRE = regexp.MustCompile(`^[A-Za-z]+-\d+$`)

func (s *Service) resolve(ctx context.Context, ref string) (*Appointment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, &ValidationError{Missing: []string{"confirmation_code or id"}}
	}
	if codeRefRE.MatchString(ref) {
		return s.repo.GetByCode(ctx, ref)
	}
	return s.repo.GetByID(ctx, ref)
}

// resolveOwned resolves ref and checks the appointment belongs to patientID.
// A foreign appointment reads as not found; codes are not secrets.
func (s *Service) resolveOwned(ctx context.Context, patientID, ref string) (*Appointment, error) {
	a, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if patientID != "" && a.PatientID != patientID {
		return nil, ErrNotFound
	}
	return a, nil
}

// afterRace re-reads the row after a conditioned update matched nothing and
// reports the state that won.
func (s *Service) afterRace(ctx context.Context, id, action string) (*Result, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if action == "confirm" && a.Status == StatusConfirmed {
		return &Result{
			Message:     fmt.Sprintf("Your appointment %s is already confirmed. See you on %s!", a.ConfirmationCode, a.WallClock()),
			Appointment: a,
		}, nil
	}
	return nil, &TransitionError{Action: action, From: a.Status,
		Hint: "The appointment changed while processing your request. Please check its status."}
}

func (s *Service) logMutation(ctx context.Context, sessionID string, a *Appointment, intent, message string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, &interactions.Interaction{
		SessionID:   sessionID,
		PatientID:   a.PatientID,
		Channel:     sourceChannel(a.ConfirmationCode),
		Direction:   interactions.DirectionOutbound,
		MessageBody: message,
		Intent:      intent,
		Metadata: map[string]any{
			"confirmation_code": a.ConfirmationCode,
			"status":            string(a.Status),
		},
	})
}

func sourceChannel(code string) string {
	switch {
	case strings.HasPrefix(code, string(SourceSMS)+"-"):
		return "sms"
	case strings.HasPrefix(code, string(SourceVoice)+"-"):
		return "voice"
	default:
		return "web_chat"
	}
}

func parseWallClock(date, clock string) (time.Time, error) {
	t24 := normalize.To24Hour(clock)
	if _, err := time.Parse("15:04", t24); err != nil {
		return time.Time{}, fmt.Errorf("appointments: bad time %q", clock)
	}
	return time.Parse(WallClockLayout, normalize.CombineDateTime(date, t24))
}

func cancellationNote(reason string, now time.Time) string {
	note := "Cancelled on " + now.UTC().Format(time.RFC3339)
	if reason != "" {
		note += ": " + reason
	}
	return note
}
