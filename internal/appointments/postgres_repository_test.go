package appointments

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresConfirmIsStatusConditioned(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)

	mock.ExpectExec("UPDATE appointments").
		WithArgs("appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	updated, err := repo.Confirm(context.Background(), "appt-1")
	if err != nil || !updated {
		t.Fatalf("expected confirm to apply, got updated=%v err=%v", updated, err)
	}

	// Same statement against a row no longer in 'scheduled' matches nothing.
	mock.ExpectExec("UPDATE appointments").
		WithArgs("appt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	updated, err = repo.Confirm(context.Background(), "appt-1")
	if err != nil || updated {
		t.Fatalf("expected confirm to miss, got updated=%v err=%v", updated, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCancelPassesNote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)

	mock.ExpectExec("UPDATE appointments").
		WithArgs("appt-1", "Cancelled on 2026-09-01T12:00:00Z: feeling better").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	note := cancellationNote("feeling better", time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC))
	updated, err := repo.Cancel(context.Background(), "appt-1", note)
	if err != nil || !updated {
		t.Fatalf("expected cancel to apply, got updated=%v err=%v", updated, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByCodeUppercases(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE confirmation_code").
		WithArgs("CHAT-12345").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByCode(context.Background(), "chat-12345"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
