package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("patients: db required")
	}
	return &PostgresRepository{db: db}
}

const patientColumns = `id, first_name, last_name, phone, COALESCE(email, ''),
	COALESCE(date_of_birth, ''), preferred_language, consent_sms, consent_voice,
	created_at, updated_at`

func scanPatient(row pgx.Row, p *Patient) error {
	return row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.Email,
		&p.DateOfBirth,
		&p.PreferredLanguage,
		&p.ConsentSMS,
		&p.ConsentVoice,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// Create inserts a new row. On a phone conflict the existing row wins and is
// loaded back into p, so concurrent first contacts converge on one patient.
func (r *PostgresRepository) Create(ctx context.Context, p *Patient) error {
	if p.Phone == "" {
		return ErrMissingPhone
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = "en"
	}

	query := `
		INSERT INTO patients (id, first_name, last_name, phone, email, date_of_birth,
			preferred_language, consent_sms, consent_voice)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
		ON CONFLICT (phone) DO NOTHING
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Phone,
		p.Email,
		p.DateOfBirth,
		p.PreferredLanguage,
		p.ConsentSMS,
		p.ConsentVoice,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("patients: insert failed: %w", err)
	}

	// Conflict: someone else created this phone first. Load their row.
	existing, err := r.GetByPhone(ctx, p.Phone)
	if err != nil {
		return fmt.Errorf("patients: conflict lookup failed: %w", err)
	}
	*p = *existing
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	var p Patient
	if err := scanPatient(r.db.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: select by id failed: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE phone = $1`
	var p Patient
	if err := scanPatient(r.db.QueryRow(ctx, query, phone), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: select by phone failed: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	query := `SELECT ` + patientColumns + ` FROM patients WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var p Patient
	if err := scanPatient(r.db.QueryRow(ctx, query, email), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("patients: select by email failed: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *Patient) error {
	query := `
		UPDATE patients
		SET first_name = $2, last_name = $3, phone = $4, email = NULLIF($5, ''),
			date_of_birth = NULLIF($6, ''), preferred_language = $7,
			consent_sms = $8, consent_voice = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID,
		p.FirstName,
		p.LastName,
		p.Phone,
		p.Email,
		p.DateOfBirth,
		p.PreferredLanguage,
		p.ConsentSMS,
		p.ConsentVoice,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("patients: update failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		var p Patient
		if err := scanPatient(rows, &p); err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: rows failed: %w", err)
	}
	return out, nil
}
