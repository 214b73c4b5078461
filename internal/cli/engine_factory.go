package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/hexcast"
	"github.com/aretw0/hexcast/internal/config"
	"github.com/aretw0/hexcast/pkg/adapters/file"
	"github.com/aretw0/hexcast/pkg/adapters/interpreter"
	"github.com/aretw0/hexcast/pkg/adapters/memory"
	"github.com/aretw0/hexcast/pkg/adapters/process"
	redisAdapter "github.com/aretw0/hexcast/pkg/adapters/redis"
	"github.com/aretw0/hexcast/pkg/content"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/observability"
	"github.com/aretw0/hexcast/pkg/persistence/middleware"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime bundles what a command needs, built from one configuration.
type Runtime struct {
	Config  config.Config
	Logger  *slog.Logger
	Engine  *hexcast.Engine
	Metrics *observability.Metrics // nil when metrics are disabled

	closers []func() error
}

// Close releases backend connections.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// LoadContent opens the configured content documents.
func LoadContent(cfg config.Config, logger *slog.Logger) (*content.Store, error) {
	opts := []content.Option{
		content.WithDefaultLocale(cfg.Content.DefaultLocale),
		content.WithSupportedLocales(cfg.Content.Locales...),
		content.WithLogger(logger),
	}
	if cfg.Content.Dir != "" {
		return content.LoadDir(cfg.Content.Dir, opts...)
	}
	return content.LoadDefault(opts...)
}

// BuildRuntime wires stores, middlewares, the interpreter and hooks into an
// engine. extra options are applied last.
func BuildRuntime(cfg config.Config, logger *slog.Logger, extra ...hexcast.Option) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	store, err := LoadContent(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error loading content: %w", err)
	}

	sessions, history, locker, err := rt.stores(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	enc, err := cfg.Encryption()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	if enc != nil {
		sessions = middleware.Chain(sessions, middleware.NewEncryptionMiddleware(*enc))
	}
	if cfg.Security.Redact && len(cfg.Security.RedactPatterns) > 0 {
		history = middleware.NewRedactionMiddleware(cfg.Security.RedactPatterns)(history)
	}

	opts := []hexcast.Option{
		hexcast.WithContent(store),
		hexcast.WithSessionStore(sessions),
		hexcast.WithHistoryStore(history),
		hexcast.WithLogger(logger),
		hexcast.WithLifecycleHooks(observability.LogHooks(logger)),
	}
	if locker != nil {
		opts = append(opts, hexcast.WithLocker(locker))
	}

	switch cfg.Interpreter.Backend {
	case config.InterpreterHTTP:
		opts = append(opts, hexcast.WithInterpreter(interpreter.NewClient(cfg.Interpreter.URL,
			interpreter.WithTimeout(cfg.Interpreter.Timeout),
			interpreter.WithLogger(logger),
		)))
	case config.InterpreterProcess:
		opts = append(opts, hexcast.WithInterpreter(process.New(cfg.Interpreter.Command, cfg.Interpreter.Args,
			process.WithDir(cfg.Interpreter.Dir),
			process.WithTimeout(cfg.Interpreter.Timeout),
			process.WithLogger(logger),
		)))
	case config.InterpreterNone:
		opts = append(opts, hexcast.WithInterpreter(nil))
	default:
		opts = append(opts, hexcast.WithInterpreter(interpreter.NewStatic(store)))
	}

	if cfg.HTTP.Metrics {
		rt.Metrics = observability.NewMetrics(prometheus.NewRegistry())
		opts = append(opts, hexcast.WithLifecycleHooks(rt.Metrics.Hooks()))
	}

	eng, err := hexcast.New(append(opts, extra...)...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = eng
	logger.Debug("Runtime ready",
		"store", cfg.Store.Backend,
		"interpreter", cfg.Interpreter.Backend,
		"encrypted", enc != nil,
		"locales", store.Locales(),
	)
	return rt, nil
}

func (rt *Runtime) stores(cfg config.Config) (ports.SessionStore, ports.HistoryStore, ports.DistributedLocker, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.NewStore(), memory.NewHistoryStore(), nil, nil
	case config.BackendFile:
		return file.New(cfg.Store.Dir), file.NewHistoryStore(cfg.Store.HistoryDir), nil, nil
	case config.BackendRedis:
		client := redisAdapter.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		rt.closers = append(rt.closers, client.Close)
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redisAdapter.DefaultPrefix
		}
		sessions := redisAdapter.NewFromClient(client,
			redisAdapter.WithPrefix(prefix+"session:"),
			redisAdapter.WithTTL(cfg.Redis.TTL),
		)
		return sessions, redisAdapter.NewHistoryStore(client, prefix+"history:"), redisAdapter.NewLocker(client, prefix), nil
	}
	return nil, nil, nil, domain.NewInvalidInput("store.backend", cfg.Store.Backend, "must be memory, file or redis")
}
