package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/google/uuid"
)

// HistoryStore implements ports.HistoryStore in memory.
type HistoryStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry // by user, oldest first
	now     func() time.Time
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		entries: make(map[string][]domain.HistoryEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a record.
func (h *HistoryStore) Create(ctx context.Context, record domain.HistoryRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}
	record.Tosses = append([]int(nil), record.Tosses...)
	entry := domain.HistoryEntry{
		ID:            uuid.NewString(),
		CreatedAt:     h.now(),
		HistoryRecord: record,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[record.UserID] = append(h.entries[record.UserID], entry)
	return entry.ID, nil
}

// List returns the entries of a user, newest first.
func (h *HistoryStore) List(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stored := h.entries[userID]
	out := make([]domain.HistoryEntry, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		e := stored[i]
		e.Tosses = append([]int(nil), e.Tosses...)
		out = append(out, e)
	}
	return out, nil
}
