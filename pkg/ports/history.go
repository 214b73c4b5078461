package ports

import (
	"context"

	"github.com/aretw0/hexcast/pkg/domain"
)

// HistoryStore is the history-persistence collaborator.
type HistoryStore interface {
	// Create stores a record and returns its identifier.
	// Returns domain.ErrUnauthenticated when the record has no owner and
	// domain.ErrInvalidInput when it fails validation.
	Create(ctx context.Context, record domain.HistoryRecord) (string, error)

	// List returns the entries of a user, newest first.
	List(ctx context.Context, userID string) ([]domain.HistoryEntry, error)
}
