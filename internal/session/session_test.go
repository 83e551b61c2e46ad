package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clinicasanmiguel/riley/internal/slots"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)

	s := New("web_chat")
	s.Slots = slots.State{Name: "John Smith", Phone: "5551234567"}
	s.AppendTurn("I'd like to book", "Sure, what day works for you?")

	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Slots.Name != "John Smith" || loaded.Slots.Phone != "5551234567" {
		t.Fatalf("unexpected slots: %#v", loaded.Slots)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(loaded.History))
	}
	if loaded.Channel != "web_chat" {
		t.Fatalf("unexpected channel: %q", loaded.Channel)
	}
}

func TestRedisStoreMissingSession(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)

	s := New("sms")
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Load(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)

	s := New("voice")
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session to be gone, got %v", err)
	}
}

func TestInMemoryStoreMatchesRedisContract(t *testing.T) {
	store := NewInMemoryStore(time.Hour)

	s := New("web_chat")
	s.Slots = slots.State{Date: "2026-09-15", Time: "10:00 AM"}
	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Slots.Date != "2026-09-15" {
		t.Fatalf("unexpected slots: %#v", loaded.Slots)
	}

	if err := store.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(context.Background(), s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
