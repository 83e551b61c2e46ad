package clinics

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresFirstActiveReturnsOldest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM clinics").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "address", "phone", "timezone", "active", "created_at",
		}).AddRow(
			"clinic-1", "Clinica San Miguel Fresno", "7424 FM 521 Rd", "(713) 555-0134", "America/Chicago", true, now,
		))

	c, err := repo.FirstActive(context.Background())
	if err != nil {
		t.Fatalf("first active failed: %v", err)
	}
	if c.Name != "Clinica San Miguel Fresno" {
		t.Fatalf("unexpected clinic %q", c.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresFirstActiveEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)

	mock.ExpectQuery("SELECT (.+) FROM clinics").WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FirstActive(context.Background()); !errors.Is(err, ErrNoActiveClinic) {
		t.Fatalf("expected ErrNoActiveClinic, got %v", err)
	}
}

func TestInMemoryFirstActiveSkipsInactive(t *testing.T) {
	repo := NewInMemoryRepository(
		&Clinic{ID: "closed", Name: "Closed Location", Active: false},
		&Clinic{ID: "open", Name: "Open Location", Active: true},
	)

	c, err := repo.FirstActive(context.Background())
	if err != nil {
		t.Fatalf("first active failed: %v", err)
	}
	if c.ID != "open" {
		t.Fatalf("expected the active clinic, got %q", c.ID)
	}

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 clinics, got %d", len(list))
	}
}
