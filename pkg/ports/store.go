package ports

import (
	"context"

	"github.com/aretw0/hexcast/pkg/domain"
)

// SessionStore keeps session snapshots between requests, so a flow started by
// one request (or replica) can be continued by the next.
type SessionStore interface {
	// Save writes the snapshot under sessionID, replacing any previous one.
	Save(ctx context.Context, sessionID string, state *domain.SessionState) error

	// Load returns the snapshot stored under sessionID, or
	// domain.ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// Delete removes the snapshot. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}
