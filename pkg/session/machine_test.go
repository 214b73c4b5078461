package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/aretw0/hexcast/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInterpreter struct {
	calls atomic.Int32
	fail  atomic.Int32 // number of leading calls that fail
	last  atomic.Pointer[ports.InterpretationRequest]
}

func (c *countingInterpreter) Interpret(_ context.Context, req ports.InterpretationRequest) (string, error) {
	n := c.calls.Add(1)
	c.last.Store(&req)
	if n <= c.fail.Load() {
		return "", errors.New("interpreter unavailable")
	}
	return "Interpretation of hexagram", nil
}

type countingHistory struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
	fail    int
	calls   int
}

func (h *countingHistory) Create(_ context.Context, record domain.HistoryRecord) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.fail {
		return "", errors.New("database unavailable")
	}
	h.records = append(h.records, record)
	return "history-1", nil
}

func (h *countingHistory) List(_ context.Context, userID string) ([]domain.HistoryEntry, error) {
	return nil, nil
}

func (h *countingHistory) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

var alice = domain.Caller{UserID: "alice"}

// revolution draws sums 7,8,7,9,7,8 which cast hexagram 49 with line 4 changing.
var revolution = [][]int{{2, 2, 3}, {2, 3, 3}, {3, 2, 2}, {3, 3, 3}, {2, 3, 2}, {3, 3, 2}}

func newSession(t *testing.T, interp ports.Interpreter, history ports.HistoryStore, opts ...session.Option) *session.Session {
	t.Helper()
	base := []session.Option{
		session.WithInterpreter(interp),
		session.WithHistoryStore(history),
		session.WithResolver(iching.NewResolver(iching.NewSeededSource(42))),
	}
	return session.New("s-1", append(base, opts...)...)
}

func castManual(t *testing.T, s *session.Session) {
	t.Helper()
	for i, draws := range revolution {
		complete, err := s.AddDraws(draws...)
		require.NoError(t, err)
		assert.Equal(t, i == len(revolution)-1, complete)
	}
}

func TestSession_ManualCast(t *testing.T) {
	interp := &countingInterpreter{}
	history := &countingHistory{}
	s := newSession(t, interp, history)

	require.NoError(t, s.Start(domain.ModeManual, "Should I change jobs?"))
	assert.Equal(t, domain.PhaseCasting, s.Phase())

	castManual(t, s)
	assert.Equal(t, domain.PhaseCastingComplete, s.Phase())

	reading, ok := s.Reading()
	require.True(t, ok)
	assert.Equal(t, 49, reading.Hexagram.Number)
	assert.Equal(t, "101110", reading.Pattern.String())
	assert.Equal(t, []int{4}, reading.Changing.Positions())
	require.NotNil(t, reading.Resulting)
	assert.Equal(t, 63, reading.Resulting.Number)

	phase, err := s.Evaluate(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)

	req := interp.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, 49, req.Hexagram)
	assert.Equal(t, "Should I change jobs?", req.Intention)
	assert.Equal(t, 63, req.Resulting)
	assert.Equal(t, []int{4}, req.Changing)

	require.Len(t, history.records, 1)
	rec := history.records[0]
	assert.Equal(t, "alice", rec.UserID)
	assert.Equal(t, 49, rec.Hexagram)
	assert.Equal(t, domain.ModeManual, rec.Mode)
	assert.Equal(t, []int{2, 2, 3, 2, 3, 3, 3, 2, 2, 3, 3, 3, 2, 3, 2, 3, 3, 2}, rec.Tosses)
	assert.Equal(t, "Interpretation of hexagram", rec.Interpretation)
	assert.NoError(t, rec.Validate())
}

func TestSession_ExactlyOnce(t *testing.T) {
	interp := &countingInterpreter{}
	history := &countingHistory{}
	s := newSession(t, interp, history)

	require.NoError(t, s.Start(domain.ModeAutomatic, "What should I focus on?"))
	_, err := s.CastRandom()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Evaluate(context.Background(), alice)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), interp.calls.Load())
	assert.Equal(t, 1, history.Calls())
	assert.Equal(t, domain.PhasePersisted, s.Phase())
	assert.True(t, s.InterpretationRequested())
	assert.True(t, s.HistoryPersisted())

	// Direct requests after consumption are no-ops.
	issued, err := s.RequestInterpretation(context.Background())
	require.NoError(t, err)
	assert.False(t, issued)
	issued, err = s.Persist(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, issued)
}

func TestSession_ResetRearmsLatches(t *testing.T) {
	interp := &countingInterpreter{}
	history := &countingHistory{}
	s := newSession(t, interp, history)
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeAutomatic, "first"))
	_, err := s.CastRandom()
	require.NoError(t, err)
	_, err = s.Evaluate(ctx, alice)
	require.NoError(t, err)
	firstGen := s.Generation()

	s.Reset()
	assert.Equal(t, domain.PhaseIdle, s.Phase())
	assert.False(t, s.InterpretationRequested())
	assert.False(t, s.HistoryPersisted())
	assert.NotEqual(t, firstGen, s.Generation())
	_, ok := s.Reading()
	assert.False(t, ok)
	assert.Empty(t, s.Interpretation())

	require.NoError(t, s.Start(domain.ModeAutomatic, "second"))
	_, err = s.CastRandom()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err = s.Evaluate(ctx, alice)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), interp.calls.Load())
	assert.Equal(t, 2, history.Calls())
}

func TestSession_StartResetsActiveFlow(t *testing.T) {
	s := newSession(t, &countingInterpreter{}, &countingHistory{})

	require.NoError(t, s.Start(domain.ModeAutomatic, "first"))
	_, _, err := s.TossRandom()
	require.NoError(t, err)
	gen := s.Generation()

	require.NoError(t, s.Start(domain.ModeManual, "second"))
	assert.NotEqual(t, gen, s.Generation())
	assert.Empty(t, s.Snapshot().Tosses)
	assert.Equal(t, domain.ModeManual, s.Snapshot().Mode)
}

func TestSession_InterpretationFailureAllowsRetry(t *testing.T) {
	interp := &countingInterpreter{}
	interp.fail.Store(1)
	history := &countingHistory{}
	s := newSession(t, interp, history)
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeAutomatic, "retry"))
	_, err := s.CastRandom()
	require.NoError(t, err)

	_, err = s.Evaluate(ctx, alice)
	require.Error(t, err)
	var collab *domain.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, domain.EffectInterpretation, collab.Effect)
	assert.Equal(t, domain.PhaseCastingComplete, s.Phase())
	assert.False(t, s.InterpretationRequested())
	assert.Equal(t, "interpreter unavailable", s.Snapshot().LastError)

	phase, err := s.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)
	assert.Equal(t, int32(2), interp.calls.Load())
	assert.Empty(t, s.Snapshot().LastError)
}

func TestSession_PersistenceFailureAllowsRetry(t *testing.T) {
	interp := &countingInterpreter{}
	history := &countingHistory{fail: 1}
	s := newSession(t, interp, history)
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeAutomatic, "retry"))
	_, err := s.CastRandom()
	require.NoError(t, err)

	_, err = s.Evaluate(ctx, alice)
	require.Error(t, err)
	assert.Equal(t, domain.PhaseInterpretationReady, s.Phase())
	assert.False(t, s.HistoryPersisted())

	phase, err := s.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)
	assert.Equal(t, int32(1), interp.calls.Load())
	assert.Equal(t, 2, history.Calls())
	assert.Equal(t, "history-1", s.Snapshot().HistoryID)
}

func TestSession_LateResultAfterResetIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (string, error) {
		close(started)
		<-release
		return "too late", nil
	})
	s := newSession(t, interp, &countingHistory{})

	require.NoError(t, s.Start(domain.ModeAutomatic, "slow"))
	_, err := s.CastRandom()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.RequestInterpretation(context.Background())
		done <- err
	}()

	<-started
	assert.Equal(t, domain.PhaseInterpretationPending, s.Phase())
	s.Reset()
	close(release)

	err = <-done
	assert.ErrorIs(t, err, domain.ErrStaleResult)
	assert.Equal(t, domain.PhaseIdle, s.Phase())
	assert.Empty(t, s.Interpretation())
	assert.False(t, s.InterpretationRequested())
}

func TestSession_InvalidTossKeepsCasting(t *testing.T) {
	s := newSession(t, &countingInterpreter{}, &countingHistory{})
	require.NoError(t, s.Start(domain.ModeManual, "q"))

	_, err := s.AddDraws(2, 4, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.AddDraws(2, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, domain.PhaseCasting, s.Phase())
	assert.Empty(t, s.Snapshot().Tosses)
}

func TestSession_InvalidTransitions(t *testing.T) {
	s := newSession(t, &countingInterpreter{}, &countingHistory{})
	ctx := context.Background()

	_, err := s.AddDraws(2, 2, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "toss before start")
	_, err = s.RequestInterpretation(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = s.Persist(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, s.Start(domain.Mode("dice"), "q"), domain.ErrInvalidInput)

	require.NoError(t, s.Start(domain.ModeAutomatic, "q"))
	_, err = s.CastRandom()
	require.NoError(t, err)

	_, _, err = s.TossRandom()
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "seventh toss")
	assert.Len(t, s.Snapshot().Tosses, domain.NumberOfTosses)
	assert.Equal(t, domain.PhaseCastingComplete, s.Phase())
}

func TestSession_EmptyIntentionWaits(t *testing.T) {
	interp := &countingInterpreter{}
	s := newSession(t, interp, &countingHistory{})
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeAutomatic, ""))
	_, err := s.CastRandom()
	require.NoError(t, err)

	phase, err := s.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCastingComplete, phase)
	assert.Zero(t, interp.calls.Load())

	_, err = s.RequestInterpretation(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, s.SetIntention("now I know"))
	phase, err = s.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)
	assert.Equal(t, int32(1), interp.calls.Load())

	assert.ErrorIs(t, s.SetIntention("too late"), domain.ErrInvalidTransition)
}

func TestSession_UnauthenticatedSkipsHistory(t *testing.T) {
	history := &countingHistory{}
	s := newSession(t, &countingInterpreter{}, history)
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeAutomatic, "anonymous"))
	_, err := s.CastRandom()
	require.NoError(t, err)

	phase, err := s.Evaluate(ctx, domain.Caller{})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseInterpretationReady, phase)
	assert.Zero(t, history.Calls())

	_, err = s.Persist(ctx, domain.Caller{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.False(t, s.HistoryPersisted())

	// Signing in later still persists exactly once.
	phase, err = s.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)
	assert.Equal(t, 1, history.Calls())
}

func TestSession_Hooks(t *testing.T) {
	var (
		mu      sync.Mutex
		phases  []domain.Phase
		effects []domain.EffectOutcome
	)
	hooks := domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, ev *domain.PhaseEvent) {
			mu.Lock()
			defer mu.Unlock()
			phases = append(phases, ev.To)
			assert.Equal(t, "s-1", ev.SessionID)
		},
		OnEffect: func(_ context.Context, ev *domain.EffectEvent) {
			mu.Lock()
			defer mu.Unlock()
			effects = append(effects, ev.Outcome)
		},
	}
	s := newSession(t, &countingInterpreter{}, &countingHistory{}, session.WithLifecycleHooks(hooks))

	require.NoError(t, s.Start(domain.ModeAutomatic, "hooks"))
	_, err := s.CastRandom()
	require.NoError(t, err)
	_, err = s.Evaluate(context.Background(), alice)
	require.NoError(t, err)

	assert.Equal(t, []domain.Phase{
		domain.PhaseCasting,
		domain.PhaseCastingComplete,
		domain.PhaseInterpretationPending,
		domain.PhaseInterpretationReady,
		domain.PhasePersisted,
	}, phases)
	assert.Equal(t, []domain.EffectOutcome{
		domain.OutcomeIssued, domain.OutcomeSucceeded,
		domain.OutcomeIssued, domain.OutcomeSucceeded,
	}, effects)
}

func TestSession_SnapshotRestore(t *testing.T) {
	interp := &countingInterpreter{}
	history := &countingHistory{}
	s := newSession(t, interp, history)
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeManual, "restore me"))
	castManual(t, s)
	_, err := s.Evaluate(ctx, domain.Caller{})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.InterpretationRequested)
	assert.False(t, snap.HistoryPersisted)
	assert.Len(t, snap.Tosses, domain.NumberOfTosses)

	restored, err := session.Restore(snap,
		session.WithInterpreter(interp),
		session.WithHistoryStore(history),
	)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseInterpretationReady, restored.Phase())
	assert.Equal(t, s.Generation(), restored.Generation())

	phase, err := restored.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)
	assert.Equal(t, int32(1), interp.calls.Load(), "restored latch must stay consumed")
	assert.Equal(t, 1, history.Calls())
	assert.Equal(t, 49, history.records[0].Hexagram)
}

func TestSession_RestoreRejectsBadSnapshot(t *testing.T) {
	_, err := session.Restore(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	revolutionTosses := make([]domain.Toss, len(revolution))
	for i, draws := range revolution {
		toss, err := iching.NewToss(draws...)
		require.NoError(t, err)
		revolutionTosses[i] = toss
	}
	reading, err := iching.Cast(revolutionTosses)
	require.NoError(t, err)
	other, err := iching.Cast([]domain.Toss{{3, 3, 2}, {3, 2, 2}, {3, 2, 2}, {3, 2, 2}, {3, 2, 2}, {3, 2, 2}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*domain.SessionState)
	}{
		{"invalid coin value", func(st *domain.SessionState) {
			st.Phase = domain.PhaseCasting
			st.Tosses = []domain.Toss{{2, 5, 3}}
		}},
		{"unknown phase", func(st *domain.SessionState) {
			st.Phase = domain.Phase("divining")
		}},
		{"complete phase without tosses", func(st *domain.SessionState) {
			st.Phase = domain.PhaseCastingComplete
			st.Intention = "q"
		}},
		{"complete phase without reading", func(st *domain.SessionState) {
			st.Phase = domain.PhaseInterpretationReady
			st.Tosses = revolutionTosses
		}},
		{"reading disagrees with tosses", func(st *domain.SessionState) {
			st.Phase = domain.PhaseCastingComplete
			st.Tosses = revolutionTosses
			st.Reading = &other
		}},
		{"casting with six tosses", func(st *domain.SessionState) {
			st.Phase = domain.PhaseCasting
			st.Tosses = revolutionTosses
		}},
		{"idle with a reading", func(st *domain.SessionState) {
			st.Reading = &reading
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := domain.NewSessionState("bad")
			tt.mutate(state)
			_, err := session.Restore(state, session.WithInterpreter(&countingInterpreter{}))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	state := domain.NewSessionState("good")
	state.Phase = domain.PhaseCastingComplete
	state.Intention = "q"
	state.Tosses = revolutionTosses
	state.Reading = &reading
	restored, err := session.Restore(state, session.WithInterpreter(&countingInterpreter{}))
	require.NoError(t, err)
	phase, err := restored.Evaluate(context.Background(), domain.Caller{})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseInterpretationReady, phase)
}

// blockingHistory holds Create until release is closed.
type blockingHistory struct {
	countingHistory
	started chan struct{}
	release chan struct{}
}

func (h *blockingHistory) Create(ctx context.Context, record domain.HistoryRecord) (string, error) {
	close(h.started)
	<-h.release
	return h.countingHistory.Create(ctx, record)
}

func TestSession_SnapshotDuringHistoryWrite(t *testing.T) {
	interp := &countingInterpreter{}
	slow := &blockingHistory{started: make(chan struct{}), release: make(chan struct{})}
	s := newSession(t, interp, slow)
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeManual, "mid-write"))
	castManual(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := s.Evaluate(ctx, alice)
		done <- err
	}()
	<-slow.started

	snap := s.Snapshot()
	assert.Equal(t, domain.PhaseInterpretationReady, snap.Phase)
	assert.True(t, snap.InterpretationRequested)
	assert.False(t, snap.HistoryPersisted, "a write in flight is not done")
	assert.True(t, s.HistoryPersisted(), "the live latch blocks a second write")

	close(slow.release)
	require.NoError(t, <-done)

	// The process holding the write died; a new one picks up the snapshot.
	history := &countingHistory{}
	restored, err := session.Restore(snap,
		session.WithInterpreter(interp),
		session.WithHistoryStore(history),
	)
	require.NoError(t, err)
	phase, err := restored.Evaluate(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePersisted, phase)
	assert.Equal(t, 1, history.Calls())
	assert.Equal(t, int32(1), interp.calls.Load())
}

func TestSession_SnapshotDuringInterpretation(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (string, error) {
		close(started)
		<-release
		return "eventually", nil
	})
	s := newSession(t, slow, &countingHistory{})
	ctx := context.Background()

	require.NoError(t, s.Start(domain.ModeManual, "mid-call"))
	castManual(t, s)

	done := make(chan error, 1)
	go func() {
		_, err := s.Evaluate(ctx, domain.Caller{})
		done <- err
	}()
	<-started
	snap := s.Snapshot()
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, domain.PhaseInterpretationPending, snap.Phase)
	assert.False(t, snap.InterpretationRequested)

	interp := &countingInterpreter{}
	restored, err := session.Restore(snap, session.WithInterpreter(interp))
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCastingComplete, restored.Phase())
	phase, err := restored.Evaluate(ctx, domain.Caller{})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseInterpretationReady, phase)
	assert.Equal(t, int32(1), interp.calls.Load())
}

func TestSession_EvaluateWithoutCollaborators(t *testing.T) {
	ctx := context.Background()

	t.Run("no interpreter rests at casting_complete", func(t *testing.T) {
		s := newSession(t, nil, &countingHistory{})
		require.NoError(t, s.Start(domain.ModeAutomatic, "q"))
		_, err := s.CastRandom()
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			phase, err := s.Evaluate(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, domain.PhaseCastingComplete, phase)
		}
		_, err = s.RequestInterpretation(ctx)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("no history store rests at interpretation_ready", func(t *testing.T) {
		interp := &countingInterpreter{}
		s := newSession(t, interp, nil)
		require.NoError(t, s.Start(domain.ModeAutomatic, "q"))
		_, err := s.CastRandom()
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			phase, err := s.Evaluate(ctx, alice)
			require.NoError(t, err)
			assert.Equal(t, domain.PhaseInterpretationReady, phase)
		}
		assert.Equal(t, int32(1), interp.calls.Load())
		_, err = s.Persist(ctx, alice)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestSession_Clock(t *testing.T) {
	fixed := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	var stamps []time.Time
	hooks := domain.LifecycleHooks{
		OnPhaseChange: func(_ context.Context, ev *domain.PhaseEvent) {
			stamps = append(stamps, ev.Timestamp)
		},
	}
	s := newSession(t, &countingInterpreter{}, &countingHistory{},
		session.WithClock(func() time.Time { return fixed }),
		session.WithLifecycleHooks(hooks),
	)
	require.NoError(t, s.Start(domain.ModeAutomatic, "when"))

	snap := s.Snapshot()
	assert.Equal(t, fixed, snap.CreatedAt)
	assert.Equal(t, fixed, snap.UpdatedAt)
	require.Len(t, stamps, 1)
	assert.Equal(t, fixed, stamps[0])
}
