package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// PostgresRepository stores appointments in the relational database. All
// mutations are single status-conditioned UPDATEs so they are atomic.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("appointments: db required")
	}
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, patient_id, clinic_id, appointment_date,
	duration_minutes, COALESCE(service_type, ''), status, confirmation_code,
	COALESCE(notes, ''), confirmed_at, created_at, updated_at`

func scanAppointment(row pgx.Row, a *Appointment) error {
	return row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ClinicID,
		&a.AppointmentDate,
		&a.DurationMinutes,
		&a.ServiceType,
		&a.Status,
		&a.ConfirmationCode,
		&a.Notes,
		&a.ConfirmedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

func (r *PostgresRepository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `
		INSERT INTO appointments (id, patient_id, clinic_id, appointment_date,
			duration_minutes, service_type, status, confirmation_code, notes)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, NULLIF($9, ''))
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.PatientID,
		a.ClinicID,
		a.AppointmentDate,
		a.DurationMinutes,
		a.ServiceType,
		a.Status,
		a.ConfirmationCode,
		a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
			strings.Contains(pgErr.ConstraintName, "confirmation_code") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var a Appointment
	if err := scanAppointment(r.db.QueryRow(ctx, query, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by id failed: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE confirmation_code = $1`
	var a Appointment
	if err := scanAppointment(r.db.QueryRow(ctx, query, strings.ToUpper(code)), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select by code failed: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) Confirm(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE appointments
		SET status = 'confirmed', confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`
	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("appointments: confirm failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Cancel(ctx context.Context, id, note string) (bool, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled',
			notes = CASE WHEN notes IS NULL OR notes = '' THEN $2
				ELSE notes || E'\n' || $2 END,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'confirmed')
	`
	ct, err := r.db.Exec(ctx, query, id, note)
	if err != nil {
		return false, fmt.Errorf("appointments: cancel failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Reschedule(ctx context.Context, id string, newDate time.Time, note string) (bool, error) {
	query := `
		UPDATE appointments
		SET appointment_date = $2, status = 'scheduled', confirmed_at = NULL,
			notes = CASE WHEN notes IS NULL OR notes = '' THEN $3
				ELSE notes || E'\n' || $3 END,
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('cancelled', 'completed')
	`
	ct, err := r.db.Exec(ctx, query, id, newDate, note)
	if err != nil {
		return false, fmt.Errorf("appointments: reschedule failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM appointments WHERE id = $1 AND status <> 'completed'`
	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("appointments: delete failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PostgresRepository) ListUpcomingByPatient(ctx context.Context, patientID string, after time.Time) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1 AND appointment_date > $2 AND status <> 'cancelled'
		ORDER BY appointment_date
	`
	rows, err := r.db.Query(ctx, query, patientID, after)
	if err != nil {
		return nil, fmt.Errorf("appointments: list upcoming failed: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]*Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: rows failed: %w", err)
	}
	return out, nil
}
