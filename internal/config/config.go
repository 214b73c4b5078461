// Package config loads the hexcast configuration from defaults, an optional
// YAML file and HEXCAST_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/persistence/middleware"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "HEXCAST_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Interpreter backends.
const (
	InterpreterStatic = "static"
	InterpreterHTTP    = "http"
	InterpreterProcess = "process"
	InterpreterNone    = "none"
)

// Config is the full application configuration.
type Config struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"` // text | json

	Content     ContentConfig     `yaml:"content" envPrefix:"CONTENT_"`
	Store       StoreConfig       `yaml:"store" envPrefix:"STORE_"`
	Redis       RedisConfig       `yaml:"redis" envPrefix:"REDIS_"`
	Interpreter InterpreterConfig `yaml:"interpreter" envPrefix:"INTERPRETER_"`
	HTTP        HTTPConfig        `yaml:"http" envPrefix:"HTTP_"`
	MCP         MCPConfig         `yaml:"mcp" envPrefix:"MCP_"`
	Security    SecurityConfig    `yaml:"security" envPrefix:"SECURITY_"`
}

// ContentConfig selects the reference text.
type ContentConfig struct {
	DefaultLocale string   `yaml:"default_locale" env:"DEFAULT_LOCALE"`
	Locales       []string `yaml:"locales" env:"LOCALES" envSeparator:","`
	// Dir overrides the embedded documents with <dir>/<locale>.yaml files.
	Dir string `yaml:"dir" env:"DIR"`
}

// StoreConfig selects where sessions and history live.
type StoreConfig struct {
	Backend    string `yaml:"backend" env:"BACKEND"`
	Dir        string `yaml:"dir" env:"DIR"`
	HistoryDir string `yaml:"history_dir" env:"HISTORY_DIR"`
}

// RedisConfig is used when the store backend is redis.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	Prefix   string        `yaml:"prefix" env:"PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// InterpreterConfig selects the interpretation collaborator.
type InterpreterConfig struct {
	Backend string        `yaml:"backend" env:"BACKEND"`
	URL     string        `yaml:"url" env:"URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// Command and Args run the process backend.
	Command string   `yaml:"command" env:"COMMAND"`
	Args    []string `yaml:"args" env:"ARGS" envSeparator:" "`
	Dir     string   `yaml:"dir" env:"DIR"`
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	Metrics bool   `yaml:"metrics" env:"METRICS"`
}

// MCPConfig configures the MCP server in SSE mode.
type MCPConfig struct {
	Addr    string `yaml:"addr" env:"ADDR"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

// SecurityConfig configures the persistence middlewares.
type SecurityConfig struct {
	// EncryptionKey is a 32-byte key in hex or base64. Empty disables sealing.
	EncryptionKey string `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	// FallbackKeys are older keys kept to open snapshots sealed before rotation.
	FallbackKeys   []string `yaml:"fallback_keys" env:"FALLBACK_KEYS" envSeparator:","`
	Redact         bool     `yaml:"redact" env:"REDACT"`
	RedactPatterns []string `yaml:"redact_patterns" env:"REDACT_PATTERNS" envSeparator:";"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Content: ContentConfig{
			DefaultLocale: "en",
			Locales:       []string{"en", "pt"},
		},
		Store: StoreConfig{
			Backend:    BackendMemory,
			Dir:        ".hexcast/sessions",
			HistoryDir: ".hexcast/history",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "hexcast:",
		},
		Interpreter: InterpreterConfig{
			Backend: InterpreterStatic,
			Timeout: 30 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:    ":8080",
			Metrics: true,
		},
		MCP: MCPConfig{
			Addr:    ":8081",
			BaseURL: "http://localhost:8081",
		},
		Security: SecurityConfig{
			Redact:         true,
			RedactPatterns: slices.Clone(middleware.DefaultRedactionPatterns),
		},
	}
}

// Load reads the configuration. path may be empty; a missing file at a
// non-empty path is an error.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; nil means os.Environ.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerations and cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be memory, file or redis, got %q", c.Store.Backend))
	}
	switch c.Interpreter.Backend {
	case InterpreterStatic, InterpreterNone:
	case InterpreterHTTP:
		if c.Interpreter.URL == "" {
			errs = append(errs, errors.New("interpreter.url is required for the http interpreter"))
		}
	case InterpreterProcess:
		if c.Interpreter.Command == "" {
			errs = append(errs, errors.New("interpreter.command is required for the process interpreter"))
		}
	default:
		errs = append(errs, fmt.Errorf("interpreter.backend must be static, http, process or none, got %q", c.Interpreter.Backend))
	}
	if len(c.Content.Locales) == 0 {
		errs = append(errs, errors.New("content.locales must not be empty"))
	} else if !slices.Contains(c.Content.Locales, c.Content.DefaultLocale) {
		errs = append(errs, fmt.Errorf("content.default_locale %q is not in content.locales", c.Content.DefaultLocale))
	}
	if c.Security.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Security.EncryptionKey); err != nil {
			errs = append(errs, err)
		}
	}
	for _, k := range c.Security.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("fallback key: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Encryption returns the middleware config, or nil when sealing is off.
// Callers are expected to have run Validate.
func (c Config) Encryption() (*middleware.EncryptionConfig, error) {
	if c.Security.EncryptionKey == "" {
		return nil, nil
	}
	active, err := middleware.ParseKey(c.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}
	out := &middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range c.Security.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, err
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}
