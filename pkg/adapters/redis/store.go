package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "hexcast:"

// noExpiryScore is the index score of sessions without TTL (2100-01-01).
const noExpiryScore = 4102444800

// Store implements ports.SessionStore using Redis. Each session is a hash
// under prefix+id; prefix+"index" is a sorted set of ids scored by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewClient builds a client from connection settings.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(NewClient(address, password, db), opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix + "session:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Hash fields of a stored session. Only the snapshot is authoritative; phase
// and generation are copies kept for cheap lookups.
const (
	fieldState      = "state"
	fieldPhase      = "phase"
	fieldGeneration = "generation"
)

// Save writes the snapshot as a hash and records its expiry in the index.
// The snapshot must belong to sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	if state == nil {
		return domain.NewInvalidInput("state", "nil", "snapshot is required")
	}
	if state.ID != "" && state.ID != sessionID {
		return domain.NewInvalidInput("state.id", state.ID, "snapshot belongs to another session")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sessionID, err)
	}

	// Expiry as index score; List drops members whose hash has lapsed.
	expires := float64(noExpiryScore)
	if s.ttl > 0 {
		expires = float64(time.Now().Add(s.ttl).Unix())
	}

	key := s.key(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldState, data,
			fieldPhase, string(state.Phase),
			fieldGeneration, state.Generation,
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: expires, Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the snapshot stored under sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	val, err := s.client.HGet(ctx, s.key(sessionID), fieldState).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	if state.ID != "" && state.ID != sessionID {
		return nil, fmt.Errorf("session %s holds a snapshot of %s: %w", sessionID, state.ID, domain.ErrSessionNotFound)
	}
	return &state, nil
}

// Phase returns the phase and generation of a stored session without
// decoding the snapshot.
func (s *Store) Phase(ctx context.Context, sessionID string) (domain.Phase, string, error) {
	vals, err := s.client.HMGet(ctx, s.key(sessionID), fieldPhase, fieldGeneration).Result()
	if err != nil {
		return "", "", fmt.Errorf("failed to read phase of %s: %w", sessionID, err)
	}
	phase, ok := vals[0].(string)
	if !ok {
		return "", "", domain.ErrSessionNotFound
	}
	generation, _ := vals[1].(string)
	return domain.Phase(phase), generation, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.ZRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns stored sessions, oldest expiry first, pruning lapsed ones.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
