// Package clinics stores the clinic locations appointments are booked
// against. Location selection is currently "first active clinic"; per-patient
// location preferences come later.
package clinics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var ErrNoActiveClinic = errors.New("no active clinic configured")

type Clinic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Timezone  string    `json:"timezone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for clinic lookup.
type Repository interface {
	FirstActive(ctx context.Context) (*Clinic, error)
	List(ctx context.Context) ([]*Clinic, error)
}

// PostgresRepository reads clinics seeded by migrations.
type PostgresRepository struct {
	db pgxQuerier
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("clinics: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("clinics: db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FirstActive(ctx context.Context) (*Clinic, error) {
	query := `
		SELECT id, name, address, phone, timezone, active, created_at
		FROM clinics
		WHERE active
		ORDER BY created_at
		LIMIT 1
	`
	var c Clinic
	err := r.db.QueryRow(ctx, query).Scan(
		&c.ID, &c.Name, &c.Address, &c.Phone, &c.Timezone, &c.Active, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveClinic
		}
		return nil, fmt.Errorf("clinics: first active: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Clinic, error) {
	query := `
		SELECT id, name, address, phone, timezone, active, created_at
		FROM clinics
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("clinics: list: %w", err)
	}
	defer rows.Close()

	var out []*Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.Timezone, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("clinics: scan: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinics: rows: %w", err)
	}
	return out, nil
}

// InMemoryRepository serves tests and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clinics []*Clinic
}

func NewInMemoryRepository(clinics ...*Clinic) *InMemoryRepository {
	return &InMemoryRepository{clinics: clinics}
}

func (r *InMemoryRepository) Add(c *Clinic) {
	r.mu.Lock()
	r.clinics = append(r.clinics, c)
	r.mu.Unlock()
}

func (r *InMemoryRepository) FirstActive(ctx context.Context) (*Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clinics {
		if c.Active {
			copied := *c
			return &copied, nil
		}
	}
	return nil, ErrNoActiveClinic
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Clinic, 0, len(r.clinics))
	for _, c := range r.clinics {
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}
