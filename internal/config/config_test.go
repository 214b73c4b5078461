package config_test

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/hexcast/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = strings.Repeat("ab", 32)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hexcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, config.InterpreterStatic, cfg.Interpreter.Backend)
	assert.Equal(t, []string{"en", "pt"}, cfg.Content.Locales)
	assert.True(t, cfg.Security.Redact)
	assert.NotEmpty(t, cfg.Security.RedactPatterns)

	enc, err := cfg.Encryption()
	require.NoError(t, err)
	assert.Nil(t, enc)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
log_level: debug
store:
  backend: redis
redis:
  addr: redis.internal:6379
  ttl: 10m
interpreter:
  backend: http
  url: http://interp.local/interpret
  timeout: 5s
`)
	cfg, err := config.LoadWithEnv(path, map[string]string{
		"HEXCAST_REDIS_ADDR":        "override:6379",
		"HEXCAST_HTTP_ADDR":         ":9090",
		"HEXCAST_CONTENT_LOCALES":   "en,pt,es",
		"HEXCAST_SECURITY_REDACT":   "false",
		"HEXCAST_STORE_HISTORY_DIR": "/var/hexcast/history",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "override:6379", cfg.Redis.Addr, "env wins over file")
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 5*time.Second, cfg.Interpreter.Timeout)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"en", "pt", "es"}, cfg.Content.Locales)
	assert.False(t, cfg.Security.Redact)
	assert.Equal(t, "/var/hexcast/history", cfg.Store.HistoryDir)
	assert.Equal(t, "hexcast:", cfg.Redis.Prefix, "untouched defaults survive")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), map[string]string{})
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := config.LoadWithEnv(writeFile(t, "store: [unclosed"), map[string]string{})
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_BadEnv(t *testing.T) {
	_, err := config.LoadWithEnv("", map[string]string{"HEXCAST_REDIS_DB": "zero"})
	assert.ErrorContains(t, err, "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"log format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
		{"store backend", func(c *config.Config) { c.Store.Backend = "s3" }, "store.backend"},
		{"interpreter backend", func(c *config.Config) { c.Interpreter.Backend = "oracle" }, "interpreter.backend"},
		{"interpreter url", func(c *config.Config) { c.Interpreter.Backend = config.InterpreterHTTP }, "interpreter.url"},
		{"interpreter command", func(c *config.Config) { c.Interpreter.Backend = config.InterpreterProcess }, "interpreter.command"},
		{"default locale", func(c *config.Config) { c.Content.DefaultLocale = "fr" }, "default_locale"},
		{"no locales", func(c *config.Config) { c.Content.Locales = nil }, "must not be empty"},
		{"encryption key", func(c *config.Config) { c.Security.EncryptionKey = "short" }, "encryption_key"},
		{"fallback key", func(c *config.Config) {
			c.Security.EncryptionKey = testKey
			c.Security.FallbackKeys = []string{"short"}
		}, "fallback key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestEncryption(t *testing.T) {
	cfg := config.Default()
	cfg.Security.EncryptionKey = testKey
	cfg.Security.FallbackKeys = []string{strings.Repeat("cd", 32)}
	require.NoError(t, cfg.Validate())

	enc, err := cfg.Encryption()
	require.NoError(t, err)
	require.NotNil(t, enc)
	want, _ := hex.DecodeString(testKey)
	assert.Equal(t, want, enc.ActiveKey)
	assert.Len(t, enc.FallbackKeys, 1)
}
