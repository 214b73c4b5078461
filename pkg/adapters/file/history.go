package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/google/uuid"
)

// HistoryStore implements ports.HistoryStore with one JSON file per entry,
// grouped in a directory per user.
type HistoryStore struct {
	BasePath string

	mu sync.Mutex
}

// NewHistoryStore creates a history store rooted at basePath.
// If basePath is empty, it defaults to ".hexcast/history".
func NewHistoryStore(basePath string) *HistoryStore {
	if basePath == "" {
		basePath = filepath.Join(".hexcast", "history")
	}
	return &HistoryStore{BasePath: basePath}
}

// Create validates and stores a record.
func (h *HistoryStore) Create(ctx context.Context, record domain.HistoryRecord) (string, error) {
	if err := record.Validate(); err != nil {
		return "", err
	}
	if err := validName("user_id", record.UserID); err != nil {
		return "", err
	}

	entry := domain.HistoryEntry{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		HistoryRecord: record,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal history entry: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := writeAtomic(filepath.Join(h.BasePath, record.UserID), entry.ID+".json", data); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// List returns the entries of a user, newest first.
func (h *HistoryStore) List(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	if err := validName("user_id", userID); err != nil {
		return nil, err
	}
	dir := filepath.Join(h.BasePath, userID)

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read history entry %s: %w", name, err)
		}
		var e domain.HistoryEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry %s: %w", name, err)
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
