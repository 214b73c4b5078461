package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/google/uuid"
)

// Session is one casting flow. Methods are safe for concurrent use; the
// collaborator calls run without holding the session lock.
type Session struct {
	mu    sync.Mutex
	state domain.SessionState

	assembler   iching.Assembler
	interpreted latch
	persisted   latch

	resolver    *iching.Resolver
	interpreter ports.Interpreter
	history     ports.HistoryStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	now         func() time.Time

	events []func(context.Context)
}

// Option configures a Session.
type Option func(*Session)

// WithInterpreter sets the interpretation collaborator.
func WithInterpreter(i ports.Interpreter) Option {
	return func(s *Session) {
		s.interpreter = i
	}
}

// WithHistoryStore sets the history-persistence collaborator.
func WithHistoryStore(h ports.HistoryStore) Option {
	return func(s *Session) {
		s.history = h
	}
}

// WithResolver sets the coin-toss resolver used for random tosses.
func WithResolver(r *iching.Resolver) Option {
	return func(s *Session) {
		s.resolver = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates an idle session.
func New(id string, opts ...Option) *Session {
	s := &Session{
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = iching.NewResolver(nil)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	s.state = domain.SessionState{
		ID:         id,
		Generation: uuid.NewString(),
		Phase:      domain.PhaseIdle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.logger = s.logger.With("session_id", id)
	return s
}

// Restore rebuilds a session from a snapshot. Latches are derived from the
// phase, so a snapshot taken while an effect was in flight restores with that
// effect armed again.
func Restore(state *domain.SessionState, opts ...Option) (*Session, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil session state", domain.ErrInvalidInput)
	}
	if !state.Phase.Valid() {
		return nil, domain.NewInvalidInput("phase", state.Phase, "unknown phase")
	}
	s := New(state.ID, opts...)
	s.state = *state.Clone()
	s.state.Tosses = nil
	s.state.Sealed = ""
	if s.state.Generation == "" {
		s.state.Generation = uuid.NewString()
	}

	for i, t := range state.Tosses {
		if _, err := s.assembler.Add(t); err != nil {
			return nil, fmt.Errorf("restore toss %d: %w", i, err)
		}
	}
	if err := s.restoreReading(); err != nil {
		return nil, err
	}

	switch s.state.Phase {
	case domain.PhaseInterpretationPending:
		// The call in flight when the snapshot was taken did not survive;
		// the next Evaluate issues it again.
		s.state.Phase = domain.PhaseCastingComplete
	case domain.PhaseInterpretationReady:
		s.interpreted.commit()
	case domain.PhasePersisted:
		s.interpreted.commit()
		s.persisted.commit()
	}
	return s, nil
}

// restoreReading checks that the tosses agree with the phase and recomputes
// the reading from them.
func (s *Session) restoreReading() error {
	switch s.state.Phase {
	case domain.PhaseIdle, domain.PhaseCasting:
		if s.assembler.Complete() {
			return domain.NewInvalidInput("tosses", len(s.assembler.Tosses()),
				fmt.Sprintf("a complete cast cannot be in phase %s", s.state.Phase))
		}
		if s.state.Reading != nil {
			return domain.NewInvalidInput("reading", s.state.Reading.Hexagram.Number,
				fmt.Sprintf("no reading is expected in phase %s", s.state.Phase))
		}
		return nil
	}

	if !s.assembler.Complete() {
		return domain.NewInvalidInput("tosses", len(s.assembler.Tosses()),
			fmt.Sprintf("phase %s needs %d tosses", s.state.Phase, domain.NumberOfTosses))
	}
	reading, err := s.assembler.Reading()
	if err != nil {
		return fmt.Errorf("restore reading: %w", err)
	}
	if s.state.Reading == nil {
		return domain.NewInvalidInput("reading", nil, fmt.Sprintf("phase %s needs a reading", s.state.Phase))
	}
	if s.state.Reading.Pattern != reading.Pattern || s.state.Reading.Hexagram.Number != reading.Hexagram.Number {
		return domain.NewInvalidInput("reading", s.state.Reading.Hexagram.Number, "does not match the tosses")
	}
	s.state.Reading = &reading
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase
}

// Generation returns the identifier of the current casting flow.
func (s *Session) Generation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation
}

// Reading returns the resolved reading once the cast is complete.
func (s *Session) Reading() (domain.Reading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Reading == nil {
		return domain.Reading{}, false
	}
	return *s.state.Clone().Reading, true
}

// Interpretation returns the interpretation text, if received.
func (s *Session) Interpretation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Interpretation
}

// InterpretationRequested reports whether the interpretation latch is consumed or in flight.
func (s *Session) InterpretationRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interpreted.triggered()
}

// HistoryPersisted reports whether the history latch is consumed or in flight.
func (s *Session) HistoryPersisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted.triggered()
}

// Snapshot returns a serializable copy of the session. Effects still in flight
// are reported as not done.
func (s *Session) Snapshot() *domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state.Clone()
	out.Tosses = s.assembler.Tosses()
	out.InterpretationRequested = s.interpreted.consumed()
	out.HistoryPersisted = s.persisted.consumed()
	return out
}

// Start begins a new casting flow. A session that is not idle is reset first.
func (s *Session) Start(mode domain.Mode, intention string) error {
	if mode == "" {
		mode = domain.ModeAutomatic
	}
	if !mode.Valid() {
		return domain.NewInvalidInput("mode", mode, "must be manual or automatic")
	}

	defer s.dispatch(context.Background())
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != domain.PhaseIdle {
		s.resetLocked()
	}
	s.state.Mode = mode
	s.state.Intention = intention
	s.transitionLocked(domain.PhaseCasting, 0)
	s.logger.Debug("Casting started", "mode", mode, "generation", s.state.Generation)
	return nil
}

// SetIntention changes the intention until the interpretation has been requested.
func (s *Session) SetIntention(intention string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interpreted.triggered() {
		return fmt.Errorf("%w: interpretation already requested", domain.ErrInvalidTransition)
	}
	switch s.state.Phase {
	case domain.PhaseIdle, domain.PhaseCasting, domain.PhaseCastingComplete:
	default:
		return fmt.Errorf("%w: cannot change intention in phase %s", domain.ErrInvalidTransition, s.state.Phase)
	}
	s.state.Intention = intention
	s.touchLocked()
	return nil
}

// SetLocale sets the locale forwarded to the interpretation collaborator.
func (s *Session) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Locale = locale
	s.touchLocked()
}

// AddToss records the next toss. When the sixth toss lands the cast is
// resolved and the session moves to casting_complete.
func (s *Session) AddToss(t domain.Toss) (bool, error) {
	defer s.dispatch(context.Background())
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTossLocked(t)
}

// AddDraws records a manually entered toss.
func (s *Session) AddDraws(draws ...int) (bool, error) {
	t, err := s.resolver.Manual(draws...)
	if err != nil {
		return false, err
	}
	return s.AddToss(t)
}

// TossRandom draws and records the next toss.
func (s *Session) TossRandom() (domain.Toss, bool, error) {
	defer s.dispatch(context.Background())
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != domain.PhaseCasting {
		return domain.Toss{}, false, fmt.Errorf("%w: cannot toss in phase %s", domain.ErrInvalidTransition, s.state.Phase)
	}
	t := s.resolver.Toss()
	complete, err := s.addTossLocked(t)
	return t, complete, err
}

// CastRandom draws every remaining toss and returns the reading.
func (s *Session) CastRandom() (domain.Reading, error) {
	defer s.dispatch(context.Background())
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != domain.PhaseCasting {
		return domain.Reading{}, fmt.Errorf("%w: cannot toss in phase %s", domain.ErrInvalidTransition, s.state.Phase)
	}
	for !s.assembler.Complete() {
		if _, err := s.addTossLocked(s.resolver.Toss()); err != nil {
			return domain.Reading{}, err
		}
	}
	return *s.state.Clone().Reading, nil
}

func (s *Session) addTossLocked(t domain.Toss) (bool, error) {
	if s.state.Phase != domain.PhaseCasting {
		return s.assembler.Complete(), fmt.Errorf("%w: cannot toss in phase %s", domain.ErrInvalidTransition, s.state.Phase)
	}
	complete, err := s.assembler.Add(t)
	if err != nil {
		return complete, err
	}
	s.touchLocked()
	if !complete {
		return false, nil
	}

	reading, err := s.assembler.Reading()
	if err != nil {
		// Unreachable with valid tables; the tosses were validated on Add.
		s.logger.Error("Cast resolution failed", "err", err)
		return true, err
	}
	s.state.Reading = &reading
	s.transitionLocked(domain.PhaseCastingComplete, reading.Hexagram.Number)
	s.logger.Info("Cast complete",
		"hexagram", reading.Hexagram.Number,
		"pattern", reading.Pattern.String(),
		"changing", reading.Changing.Positions(),
	)
	return true, nil
}

// Evaluate fires whichever guarded effect the current phase calls for.
// It is meant to be called on every upstream change; repeated calls never
// issue an effect twice. Without an interpreter (or history store) the
// session rests in the phase before that effect.
func (s *Session) Evaluate(ctx context.Context, caller domain.Caller) (domain.Phase, error) {
	if s.wantsInterpretation() {
		if _, err := s.RequestInterpretation(ctx); err != nil {
			return s.Phase(), err
		}
	}
	if s.wantsPersistence(caller) {
		if _, err := s.Persist(ctx, caller); err != nil {
			return s.Phase(), err
		}
	}
	return s.Phase(), nil
}

func (s *Session) wantsInterpretation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase == domain.PhaseCastingComplete && s.state.Intention != "" && s.interpreter != nil
}

func (s *Session) wantsPersistence(caller domain.Caller) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase == domain.PhaseInterpretationReady && caller.Authenticated() && s.history != nil
}

// RequestInterpretation issues the interpretation request unless it was
// already issued for this flow. It reports whether a request was made.
func (s *Session) RequestInterpretation(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.interpreted.triggered() {
		s.effectLocked(domain.EffectInterpretation, domain.OutcomeSkipped, nil)
		s.mu.Unlock()
		s.dispatch(ctx)
		return false, nil
	}
	if s.state.Phase != domain.PhaseCastingComplete {
		phase := s.state.Phase
		s.mu.Unlock()
		return false, fmt.Errorf("%w: cannot interpret in phase %s", domain.ErrInvalidTransition, phase)
	}
	if s.state.Intention == "" {
		s.mu.Unlock()
		return false, domain.NewInvalidInput("intention", "", "an intention is required for an interpretation")
	}
	if s.interpreter == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: no interpreter configured", domain.ErrInvalidTransition)
	}

	s.interpreted.acquire()
	generation := s.state.Generation
	reading := *s.state.Reading
	req := ports.InterpretationRequest{
		Hexagram:  reading.Hexagram.Number,
		Intention: s.state.Intention,
		Changing:  reading.Changing.Positions(),
		Locale:    s.state.Locale,
	}
	if reading.Resulting != nil {
		req.Resulting = reading.Resulting.Number
	}
	s.transitionLocked(domain.PhaseInterpretationPending, 0)
	s.effectLocked(domain.EffectInterpretation, domain.OutcomeIssued, nil)
	interpreter := s.interpreter
	s.mu.Unlock()
	s.dispatch(ctx)

	text, err := interpreter.Interpret(ctx, req)

	defer s.dispatch(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Generation != generation {
		// The session was reset while waiting; its latches belong to a new flow.
		s.effectForLocked(generation, domain.EffectInterpretation, domain.OutcomeDiscarded, err)
		s.logger.Warn("Discarding late interpretation", "generation", generation)
		return true, domain.ErrStaleResult
	}
	if err != nil {
		s.interpreted.release()
		s.state.LastError = err.Error()
		s.transitionLocked(domain.PhaseCastingComplete, 0)
		s.effectLocked(domain.EffectInterpretation, domain.OutcomeFailed, err)
		s.logger.Warn("Interpretation failed", "err", err)
		return true, &domain.CollaboratorError{Effect: domain.EffectInterpretation, Err: err}
	}

	s.interpreted.commit()
	s.state.Interpretation = text
	s.state.LastError = ""
	s.transitionLocked(domain.PhaseInterpretationReady, 0)
	s.effectLocked(domain.EffectInterpretation, domain.OutcomeSucceeded, nil)
	return true, nil
}

// Persist issues the history write for an authenticated caller unless it was
// already issued for this flow. It reports whether a write was made.
func (s *Session) Persist(ctx context.Context, caller domain.Caller) (bool, error) {
	s.mu.Lock()
	if s.persisted.triggered() {
		s.effectLocked(domain.EffectPersistence, domain.OutcomeSkipped, nil)
		s.mu.Unlock()
		s.dispatch(ctx)
		return false, nil
	}
	if s.state.Phase != domain.PhaseInterpretationReady {
		phase := s.state.Phase
		s.mu.Unlock()
		return false, fmt.Errorf("%w: cannot persist in phase %s", domain.ErrInvalidTransition, phase)
	}
	if !caller.Authenticated() {
		s.mu.Unlock()
		return false, domain.ErrUnauthenticated
	}
	if s.history == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: no history store configured", domain.ErrInvalidTransition)
	}

	s.persisted.acquire()
	generation := s.state.Generation
	record := domain.HistoryRecord{
		UserID:         caller.UserID,
		Intention:      s.state.Intention,
		Tosses:         domain.FlattenTosses(s.assembler.Tosses()),
		Hexagram:       s.state.Reading.Hexagram.Number,
		Mode:           s.state.Mode,
		Interpretation: s.state.Interpretation,
	}
	s.effectLocked(domain.EffectPersistence, domain.OutcomeIssued, nil)
	history := s.history
	s.mu.Unlock()
	s.dispatch(ctx)

	id, err := history.Create(ctx, record)

	defer s.dispatch(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Generation != generation {
		s.effectForLocked(generation, domain.EffectPersistence, domain.OutcomeDiscarded, err)
		s.logger.Warn("Discarding late history acknowledgement", "generation", generation)
		return true, domain.ErrStaleResult
	}
	if err != nil {
		s.persisted.release()
		s.state.LastError = err.Error()
		s.touchLocked()
		s.effectLocked(domain.EffectPersistence, domain.OutcomeFailed, err)
		s.logger.Warn("History write failed", "err", err)
		return true, &domain.CollaboratorError{Effect: domain.EffectPersistence, Err: err}
	}

	s.persisted.commit()
	s.state.HistoryID = id
	s.state.LastError = ""
	s.transitionLocked(domain.PhasePersisted, 0)
	s.effectLocked(domain.EffectPersistence, domain.OutcomeSucceeded, nil)
	return true, nil
}

// Reset discards the flow and returns the session to idle. Results of calls
// still in flight are discarded when they arrive.
func (s *Session) Reset() {
	defer s.dispatch(context.Background())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.assembler.Reset()
	s.interpreted.reset()
	s.persisted.reset()
	s.state.Generation = uuid.NewString()
	s.state.Mode = ""
	s.state.Intention = ""
	s.state.Reading = nil
	s.state.Interpretation = ""
	s.state.HistoryID = ""
	s.state.LastError = ""
	s.transitionLocked(domain.PhaseIdle, 0)
}

func (s *Session) touchLocked() {
	s.state.UpdatedAt = s.now()
}

func (s *Session) transitionLocked(to domain.Phase, hexagram int) {
	from := s.state.Phase
	s.state.Phase = to
	s.touchLocked()
	if s.hooks.OnPhaseChange == nil {
		return
	}
	ev := &domain.PhaseEvent{
		EventBase: s.eventBase(s.state.Generation, domain.EventPhaseChange),
		From:      from,
		To:        to,
		Mode:      s.state.Mode,
		Hexagram:  hexagram,
	}
	hook := s.hooks.OnPhaseChange
	s.events = append(s.events, func(ctx context.Context) { hook(ctx, ev) })
}

func (s *Session) effectLocked(effect domain.Effect, outcome domain.EffectOutcome, err error) {
	s.effectForLocked(s.state.Generation, effect, outcome, err)
}

func (s *Session) effectForLocked(generation string, effect domain.Effect, outcome domain.EffectOutcome, err error) {
	if s.hooks.OnEffect == nil {
		return
	}
	ev := &domain.EffectEvent{
		EventBase: s.eventBase(generation, domain.EventEffect),
		Effect:    effect,
		Outcome:   outcome,
		Err:       err,
	}
	hook := s.hooks.OnEffect
	s.events = append(s.events, func(ctx context.Context) { hook(ctx, ev) })
}

func (s *Session) eventBase(generation string, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  s.now(),
		Type:       t,
		SessionID:  s.state.ID,
		Generation: generation,
	}
}

// dispatch runs queued hooks outside the session lock.
func (s *Session) dispatch(ctx context.Context) {
	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()
	for _, fire := range events {
		fire(ctx)
	}
}
