package patients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for patient storage.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit int) ([]*Patient, error)
}

// InMemoryRepository implements Repository with in-memory storage for tests
// and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Patient
	byPhone map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*Patient),
		byPhone: make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, p *Patient) error {
	if p.Phone == "" {
		return ErrMissingPhone
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The unique phone index keeps concurrent first contacts from creating
	// duplicate rows; the in-memory variant enforces the same contract.
	if id, ok := r.byPhone[p.Phone]; ok {
		existing := *r.byID[id]
		*p = existing
		return nil
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := *p
	r.byID[p.ID] = &stored
	r.byPhone[p.Phone] = p.ID
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

// GetByEmail scans for a case-insensitive email match. Email has no unique
// index; the first match wins, mirroring the single-row database lookup.
func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	if email == "" {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byID {
		if strings.EqualFold(p.Email, email) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) Update(ctx context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	delete(r.byPhone, existing.Phone)
	stored := *p
	r.byID[p.ID] = &stored
	r.byPhone[p.Phone] = p.ID
	return nil
}

func (r *InMemoryRepository) List(ctx context.Context, limit int) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Patient, 0, len(r.byID))
	for _, p := range r.byID {
		copied := *p
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
