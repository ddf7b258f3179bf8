package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	keys    map[string]bool
	lastKey string
	setErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: make(map[string]bool)}
}

func (s *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (s *fakeStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	s.lastKey = key
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func TestCheckAndMarkProcessedFirstAndSecondPass(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	eventID := uuid.New()

	processed, err := manager.CheckAndMarkProcessed(context.Background(), "settlement-worker", eventID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if processed {
		t.Fatal("first pass should not be processed")
	}

	processed, err = manager.CheckAndMarkProcessed(context.Background(), "settlement-worker", eventID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !processed {
		t.Fatal("second pass should be processed")
	}
}

func TestCheckAndMarkProcessedPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("redis down")
	manager, _ := NewManager(store, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "settlement-worker", uuid.New()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestCheckAndMarkProcessedRequiresConsumer(t *testing.T) {
	manager, _ := NewManager(newFakeStore(), time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
}

func TestDeleteClearsMarker(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)
	eventID := uuid.New()

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "settlement-worker", eventID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := manager.Delete(context.Background(), "settlement-worker", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	processed, err := manager.CheckAndMarkProcessed(context.Background(), "settlement-worker", eventID)
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if processed {
		t.Fatal("marker should have been cleared")
	}
}
