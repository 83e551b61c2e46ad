// Package interactions is the append-only log of every message in or out of
// the assistant, across all channels. Rows are never updated or deleted;
// call-progress state lives elsewhere.
package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

type Interaction struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	PatientID   string         `json:"patient_id,omitempty"`
	Channel     string         `json:"channel"`
	Direction   string         `json:"direction"`
	FromNumber  string         `json:"from_number,omitempty"`
	ToNumber    string         `json:"to_number,omitempty"`
	MessageBody string         `json:"message_body"`
	Intent      string         `json:"intent,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Store appends interaction rows.
type Store interface {
	Append(ctx context.Context, rec *Interaction) error
}

type pgxExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists interactions with jsonb metadata.
type PostgresStore struct {
	db pgxExecer
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("interactions: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db pgxExecer) *PostgresStore {
	if db == nil {
		panic("interactions: db required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec *Interaction) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if rec.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(rec.Metadata); err != nil {
			return fmt.Errorf("interactions: marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO interactions (id, session_id, patient_id, channel, direction,
			from_number, to_number, message_body, intent, metadata, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''),
			$8, NULLIF($9, ''), $10, $11)
	`
	if _, err := s.db.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.PatientID,
		rec.Channel,
		rec.Direction,
		rec.FromNumber,
		rec.ToNumber,
		rec.MessageBody,
		rec.Intent,
		metadata,
		rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("interactions: insert failed: %w", err)
	}
	return nil
}

// InMemoryStore keeps interactions in memory for tests and local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows []*Interaction
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, rec *Interaction) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	copied := *rec
	s.mu.Lock()
	s.rows = append(s.rows, &copied)
	s.mu.Unlock()
	return nil
}

// All returns a snapshot of everything appended, oldest first.
func (s *InMemoryStore) All() []*Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Interaction, 0, len(s.rows))
	for _, r := range s.rows {
		copied := *r
		out = append(out, &copied)
	}
	return out
}
