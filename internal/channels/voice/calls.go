// Package voice adapts Vapi call webhooks. Call progress lives in a
// call-id-keyed store so the interactions log stays append-only.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCallNotFound = errors.New("voice call not found")

// TranscriptLine is one utterance in the call.
type TranscriptLine struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Call tracks one phone call from start to the end-of-call report.
type Call struct {
	CallID          string           `json:"call_id"`
	PatientID       string           `json:"patient_id,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	Transcript      []TranscriptLine `json:"transcript"`
	StartedAt       time.Time        `json:"started_at"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
	EndedReason     string           `json:"ended_reason,omitempty"`
	DurationSeconds int              `json:"duration_seconds,omitempty"`
	Summary         string           `json:"summary,omitempty"`
}

// UserText joins everything the caller said, for slot mining at call end.
func (c *Call) UserText() string {
	var out string
	for _, line := range c.Transcript {
		if line.Role != "user" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += line.Text
	}
	return out
}

// CallStore persists call progress keyed by the provider's call id.
type CallStore interface {
	Start(ctx context.Context, call *Call) error
	AppendLine(ctx context.Context, callID string, line TranscriptLine) error
	Finish(ctx context.Context, callID, reason, summary string, durationSeconds int) error
	Get(ctx context.Context, callID string) (*Call, error)
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCallStore keeps call rows in voice_calls.
type PostgresCallStore struct {
	db pgxQuerier
}

func NewPostgresCallStore(pool *pgxpool.Pool) *PostgresCallStore {
	if pool == nil {
		panic("voice: pgx pool required")
	}
	return &PostgresCallStore{db: pool}
}

func newPostgresCallStoreWithDB(db pgxQuerier) *PostgresCallStore {
	if db == nil {
		panic("voice: db required")
	}
	return &PostgresCallStore{db: db}
}

// Start records the call. Duplicate status-update deliveries upsert the same
// row instead of failing.
func (s *PostgresCallStore) Start(ctx context.Context, call *Call) error {
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO voice_calls (call_id, patient_id, phone, transcript, started_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), '[]'::jsonb, $4)
		ON CONFLICT (call_id) DO UPDATE
		SET patient_id = COALESCE(voice_calls.patient_id, EXCLUDED.patient_id),
			phone = COALESCE(voice_calls.phone, EXCLUDED.phone)
	`
	if _, err := s.db.Exec(ctx, query, call.CallID, call.PatientID, call.Phone, call.StartedAt); err != nil {
		return fmt.Errorf("voice: start call: %w", err)
	}
	return nil
}

func (s *PostgresCallStore) AppendLine(ctx context.Context, callID string, line TranscriptLine) error {
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("voice: marshal line: %w", err)
	}
	query := `
		UPDATE voice_calls
		SET transcript = transcript || $2::jsonb
		WHERE call_id = $1
	`
	ct, err := s.db.Exec(ctx, query, callID, data)
	if err != nil {
		return fmt.Errorf("voice: append line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCallNotFound
	}
	return nil
}

func (s *PostgresCallStore) Finish(ctx context.Context, callID, reason, summary string, durationSeconds int) error {
	query := `
		UPDATE voice_calls
		SET ended_at = NOW(), ended_reason = NULLIF($2, ''),
			summary = NULLIF($3, ''), duration_seconds = $4
		WHERE call_id = $1
	`
	ct, err := s.db.Exec(ctx, query, callID, reason, summary, durationSeconds)
	if err != nil {
		return fmt.Errorf("voice: finish call: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCallNotFound
	}
	return nil
}

func (s *PostgresCallStore) Get(ctx context.Context, callID string) (*Call, error) {
	query := `
		SELECT call_id, COALESCE(patient_id::text, ''), COALESCE(phone, ''), transcript,
			started_at, ended_at, COALESCE(ended_reason, ''), COALESCE(summary, ''),
			COALESCE(duration_seconds, 0)
		FROM voice_calls
		WHERE call_id = $1
	`
	var c Call
	var transcript []byte
	err := s.db.QueryRow(ctx, query, callID).Scan(
		&c.CallID, &c.PatientID, &c.Phone, &transcript,
		&c.StartedAt, &c.EndedAt, &c.EndedReason, &c.Summary, &c.DurationSeconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("voice: get call: %w", err)
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &c.Transcript); err != nil {
			return nil, fmt.Errorf("voice: decode transcript: %w", err)
		}
	}
	return &c, nil
}

// InMemoryCallStore serves tests and local development.
type InMemoryCallStore struct {
	mu    sync.RWMutex
	calls map[string]*Call
}

func NewInMemoryCallStore() *InMemoryCallStore {
	return &InMemoryCallStore{calls: make(map[string]*Call)}
}

func (s *InMemoryCallStore) Start(ctx context.Context, call *Call) error {
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.calls[call.CallID]; ok {
		if existing.PatientID == "" {
			existing.PatientID = call.PatientID
		}
		if existing.Phone == "" {
			existing.Phone = call.Phone
		}
		return nil
	}
	copied := *call
	s.calls[call.CallID] = &copied
	return nil
}

func (s *InMemoryCallStore) AppendLine(ctx context.Context, callID string, line TranscriptLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if !ok {
		return ErrCallNotFound
	}
	call.Transcript = append(call.Transcript, line)
	return nil
}

func (s *InMemoryCallStore) Finish(ctx context.Context, callID, reason, summary string, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[callID]
	if !ok {
		return ErrCallNotFound
	}
	now := time.Now().UTC()
	call.EndedAt = &now
	call.EndedReason = reason
	call.Summary = summary
	call.DurationSeconds = durationSeconds
	return nil
}

func (s *InMemoryCallStore) Get(ctx context.Context, callID string) (*Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	call, ok := s.calls[callID]
	if !ok {
		return nil, ErrCallNotFound
	}
	copied := *call
	copied.Transcript = append([]TranscriptLine(nil), call.Transcript...)
	return &copied, nil
}
