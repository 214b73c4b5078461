package hexcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/adapters/interpreter"
	"github.com/aretw0/hexcast/pkg/adapters/memory"
	"github.com/aretw0/hexcast/pkg/content"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/aretw0/hexcast/pkg/session"
)

// Engine is the high-level entry point for the hexcast library.
// It wires the content store, the casting engine and the session manager.
type Engine struct {
	content     *content.Store
	store       ports.SessionStore
	history     ports.HistoryStore
	interpreter ports.Interpreter
	locker      ports.DistributedLocker
	hooks       []domain.LifecycleHooks
	resolver    *iching.Resolver
	logger      *slog.Logger

	noInterpreter bool
	manager       *session.Manager
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithContent uses a preloaded content store instead of the embedded documents.
func WithContent(store *content.Store) Option {
	return func(e *Engine) {
		e.content = store
	}
}

// WithSessionStore sets where session snapshots live (default: in memory).
func WithSessionStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithHistoryStore sets the history collaborator (default: in memory).
func WithHistoryStore(history ports.HistoryStore) Option {
	return func(e *Engine) {
		e.history = history
	}
}

// WithInterpreter sets the interpretation collaborator. Passing nil disables
// interpretations; the default is the offline static interpreter.
func WithInterpreter(i ports.Interpreter) Option {
	return func(e *Engine) {
		e.interpreter = i
		e.noInterpreter = i == nil
	}
}

// WithLocker serializes sessions across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLifecycleHooks registers observability hooks. It may be given more than once.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithSeed makes random casts reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.resolver = iching.NewResolver(iching.NewSeededSource(seed))
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.content == nil {
		store, err := content.LoadDefault(content.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to load content: %w", err)
		}
		e.content = store
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.history == nil {
		e.history = memory.NewHistoryStore()
	}
	if e.interpreter == nil && !e.noInterpreter {
		e.interpreter = interpreter.NewStatic(e.content)
	}
	if e.resolver == nil {
		e.resolver = iching.NewResolver(nil)
	}

	managerOpts := []session.ManagerOption{
		session.WithSessionOptions(e.SessionOptions()...),
		session.WithManagerLogger(e.logger),
	}
	if e.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(e.locker))
	}
	e.manager = session.NewManager(e.store, managerOpts...)
	return e, nil
}

// SessionOptions returns the options every session of this engine gets.
func (e *Engine) SessionOptions() []session.Option {
	opts := []session.Option{
		session.WithResolver(e.resolver),
		session.WithHistoryStore(e.history),
		session.WithLogger(e.logger),
	}
	if e.interpreter != nil {
		opts = append(opts, session.WithInterpreter(e.interpreter))
	}
	if len(e.hooks) > 0 {
		opts = append(opts, session.WithLifecycleHooks(domain.MergeHooks(e.hooks...)))
	}
	return opts
}

// Cast draws six random tosses and resolves them.
func (e *Engine) Cast() (domain.Reading, error) {
	tosses := make([]domain.Toss, domain.NumberOfTosses)
	for i := range tosses {
		tosses[i] = e.resolver.Toss()
	}
	return iching.Cast(tosses)
}

// CastTosses resolves tosses given by the caller.
func (e *Engine) CastTosses(tosses []domain.Toss) (domain.Reading, error) {
	return iching.Cast(tosses)
}

// Text returns the reference text of hexagram n, falling back to the default locale.
func (e *Engine) Text(n int, locale string) (domain.LocalizedHexagramText, error) {
	return e.content.Text(n, locale)
}

// Interpret asks the configured interpreter about a reading, outside any session.
func (e *Engine) Interpret(ctx context.Context, reading domain.Reading, intention, locale string) (string, error) {
	if e.interpreter == nil {
		return "", fmt.Errorf("%w: no interpreter configured", domain.ErrInvalidTransition)
	}
	req := ports.InterpretationRequest{
		Hexagram:  reading.Hexagram.Number,
		Intention: intention,
		Changing:  reading.Changing.Positions(),
		Locale:    e.content.Resolve(locale),
	}
	if reading.Resulting != nil {
		req.Resulting = reading.Resulting.Number
	}
	return e.interpreter.Interpret(ctx, req)
}

// NewSession creates an unmanaged session with the engine collaborators.
func (e *Engine) NewSession(id string) *session.Session {
	return session.New(id, e.SessionOptions()...)
}

// Content exposes the localized content store.
func (e *Engine) Content() *content.Store {
	return e.content
}

// Manager exposes the session manager.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}

// History exposes the history collaborator.
func (e *Engine) History() ports.HistoryStore {
	return e.history
}

// Interpreter returns the configured interpreter, or nil.
func (e *Engine) Interpreter() ports.Interpreter {
	return e.interpreter
}
