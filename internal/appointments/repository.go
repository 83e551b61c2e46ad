package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment storage. The Confirm,
// Cancel, Reschedule, and Delete mutations are status-conditioned: they
// report false when the row is gone or its status no longer satisfies the
// precondition, so two incompatible concurrent mutations cannot both succeed.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	GetByCode(ctx context.Context, code string) (*Appointment, error)
	Confirm(ctx context.Context, id string) (bool, error)
	Cancel(ctx context.Context, id, note string) (bool, error)
	Reschedule(ctx context.Context, id string, newDate time.Time, note string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListUpcomingByPatient(ctx context.Context, patientID string, after time.Time) ([]*Appointment, error)
	List(ctx context.Context, limit int) ([]*Appointment, error)
}

// InMemoryRepository implements Repository for tests and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*Appointment
	byCode map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*Appointment),
		byCode: make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCode[a.ConfirmationCode]; taken {
		return ErrDuplicateCode
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	stored := *a
	r.byID[a.ID] = &stored
	r.byCode[a.ConfirmationCode] = a.ID
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *InMemoryRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *InMemoryRepository) Confirm(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Status != StatusScheduled {
		return false, nil
	}
	now := time.Now().UTC()
	a.Status = StatusConfirmed
	a.ConfirmedAt = &now
	a.UpdatedAt = now
	return true, nil
}

func (r *InMemoryRepository) Cancel(ctx context.Context, id, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || (a.Status != StatusScheduled && a.Status != StatusConfirmed) {
		return false, nil
	}
	a.Status = StatusCancelled
	appendNote(a, note)
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *InMemoryRepository) Reschedule(ctx context.Context, id string, newDate time.Time, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Status == StatusCancelled || a.Status == StatusCompleted {
		return false, nil
	}
	a.AppointmentDate = newDate
	a.Status = StatusScheduled
	a.ConfirmedAt = nil
	appendNote(a, note)
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Status == StatusCompleted {
		return false, nil
	}
	delete(r.byID, id)
	delete(r.byCode, a.ConfirmationCode)
	return true, nil
}

func (r *InMemoryRepository) ListUpcomingByPatient(ctx context.Context, patientID string, after time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.byID {
		if a.PatientID != patientID || a.Status == StatusCancelled || !a.AppointmentDate.After(after) {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})
	return out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Appointment, 0, len(r.byID))
	for _, a := range r.byID {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func appendNote(a *Appointment, note string) {
	if note == "" {
		return
	}
	if a.Notes == "" {
		a.Notes = note
		return
	}
	a.Notes += "\n" + note
}
