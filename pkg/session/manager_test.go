package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/aretw0/hexcast/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.SessionState
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.SessionState)
	}
	s.data[sessionID] = state.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	time.Sleep(2 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.data[sessionID]; ok {
		return state.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_CreateAndLoad(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()

	state, err := manager.Create(ctx, "created")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIdle, state.Phase)
	assert.NotEmpty(t, state.Generation)

	_, err = manager.Create(ctx, "created")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	loaded, err := manager.Load(ctx, "created")
	require.NoError(t, err)
	assert.Equal(t, state.Generation, loaded.Generation)

	generated, err := manager.Create(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"created", generated.ID}, ids)

	require.NoError(t, manager.Delete(ctx, "created"))
	_, err = manager.Load(ctx, "created")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = manager.Do(ctx, "missing", func(context.Context, *session.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_DoSavesAfterFailure(t *testing.T) {
	manager := session.NewManager(&SlowStore{})
	ctx := context.Background()
	_, err := manager.Create(ctx, "manual")
	require.NoError(t, err)

	state, err := manager.Do(ctx, "manual", func(ctx context.Context, s *session.Session) error {
		if err := s.Start(domain.ModeManual, "q"); err != nil {
			return err
		}
		if _, err := s.AddDraws(3, 3, 3); err != nil {
			return err
		}
		_, err := s.AddDraws(1, 1, 1)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	require.NotNil(t, state)
	assert.Equal(t, domain.PhaseCasting, state.Phase)
	assert.Len(t, state.Tosses, 1)

	loaded, err := manager.Load(ctx, "manual")
	require.NoError(t, err)
	assert.Len(t, loaded.Tosses, 1)
}

// Concurrent requests against the same stored session must still produce a
// single interpretation and a single history write.
func TestManager_ExactlyOnceAcrossRequests(t *testing.T) {
	interp := &countingInterpreter{}
	history := &countingHistory{}
	manager := session.NewManager(&SlowStore{},
		session.WithSessionOptions(
			session.WithInterpreter(interp),
			session.WithHistoryStore(history),
		),
	)
	ctx := context.Background()
	id := "race-test"

	_, err := manager.Create(ctx, id)
	require.NoError(t, err)
	_, err = manager.Do(ctx, id, func(ctx context.Context, s *session.Session) error {
		if err := s.Start(domain.ModeAutomatic, "q"); err != nil {
			return err
		}
		_, err := s.CastRandom()
		return err
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Do(ctx, id, func(ctx context.Context, s *session.Session) error {
				_, err := s.Evaluate(ctx, alice)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), interp.calls.Load())
	assert.Equal(t, 1, history.Calls())

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, state.Phase)
	assert.True(t, state.HistoryPersisted)
}

type recordingLocker struct {
	mu     sync.Mutex
	locked map[string]int
	ttl    time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked == nil {
		l.locked = make(map[string]int)
	}
	l.locked[key]++
	l.ttl = ttl
	return func(context.Context) error { return nil }, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(&SlowStore{},
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	_, err := manager.Create(ctx, "locked")
	require.NoError(t, err)
	_, err = manager.Load(ctx, "locked")
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locked["locked"])
	assert.Equal(t, 5*time.Second, locker.ttl)
}
