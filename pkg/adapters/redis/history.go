package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// HistoryStore implements ports.HistoryStore using Redis.
// Entries live under <prefix>entry:<id>; each user has a sorted set of
// entry ids scored by creation time.
type HistoryStore struct {
	client *backend.Client
	prefix string
}

// NewHistoryStore creates a history store. An empty prefix defaults to
// "hexcast:history:".
func NewHistoryStore(client *backend.Client, prefix string) *HistoryStore {
	if prefix == "" {
		prefix = DefaultPrefix + "history:"
	}
	return &HistoryStore{client: client, prefix: prefix}
}

func (h *HistoryStore) entryKey(id string) string {
	return h.prefix + "entry:" + id
}

func (h *HistoryStore) userKey(userID string) string {
	return h.prefix + "user:" + userID
}

// Create validates and stores a record.
func (h *HistoryStore) Create(ctx context.Context, record domain.HistoryRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}
	entry := domain.HistoryEntry{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		HistoryRecord: record,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal history entry: %w", err)
	}

	pipe := h.client.TxPipeline()
	pipe.Set(ctx, h.entryKey(entry.ID), data, 0)
	pipe.ZAdd(ctx, h.userKey(record.UserID), backend.Z{
		Score:  float64(entry.CreatedAt.UnixMicro()),
		Member: entry.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save history to redis: %w", err)
	}
	return entry.ID, nil
}

// List returns the entries of a user, newest first.
func (h *HistoryStore) List(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	ids, err := h.client.ZRevRange(ctx, h.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = h.entryKey(id)
	}
	values, err := h.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history entries: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index points at a deleted entry.
			continue
		}
		var e domain.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry %s: %w", ids[i], err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
