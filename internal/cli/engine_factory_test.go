package cli

import (
	"context"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/hexcast/internal/config"
	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/adapters/file"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlow(t *testing.T, rt *Runtime, id, intention string) *domain.SessionState {
	t.Helper()
	ctx := context.Background()
	_, err := rt.Engine.Manager().Create(ctx, id)
	require.NoError(t, err)
	state, err := rt.Engine.Manager().Do(ctx, id, func(ctx context.Context, s *session.Session) error {
		if err := s.Start(domain.ModeAutomatic, intention); err != nil {
			return err
		}
		if _, err := s.CastRandom(); err != nil {
			return err
		}
		_, err := s.Evaluate(ctx, domain.Caller{UserID: "alice"})
		return err
	})
	require.NoError(t, err)
	return state
}

func TestBuildRuntime_Defaults(t *testing.T) {
	rt, err := BuildRuntime(config.Default(), logging.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	require.NotNil(t, rt.Metrics)
	require.NotNil(t, rt.Engine.Interpreter(), "static interpreter by default")

	state := runFlow(t, rt, "defaults", "mail me at alice@example.com")
	assert.Equal(t, domain.PhasePersisted, state.Phase)
	assert.Equal(t, 1.0, testutil.ToFloat64(rt.Metrics.Effects.WithLabelValues("persistence", "succeeded")))

	entries, err := rt.Engine.History().List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mail me at ***", entries[0].Intention, "history is redacted by default")
}

func TestBuildRuntime_FileWithEncryption(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.Dir = filepath.Join(dir, "sessions")
	cfg.Store.HistoryDir = filepath.Join(dir, "history")
	cfg.Security.EncryptionKey = strings.Repeat("0f", 32)
	cfg.HTTP.Metrics = false
	require.NoError(t, cfg.Validate())

	rt, err := BuildRuntime(cfg, logging.NewNop())
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.Metrics)

	state := runFlow(t, rt, "sealed", "secret question")
	assert.Equal(t, "secret question", state.Intention)

	raw, err := file.New(cfg.Store.Dir).Load(context.Background(), "sealed")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)
	assert.Empty(t, raw.Intention)

	loaded, err := rt.Engine.Manager().Load(context.Background(), "sealed")
	require.NoError(t, err)
	assert.Equal(t, "secret question", loaded.Intention)
}

func TestBuildRuntime_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Prefix = "test:"
	cfg.Interpreter.Backend = config.InterpreterNone

	rt, err := BuildRuntime(cfg, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, rt.Engine.Interpreter())

	state := runFlow(t, rt, "remote", "q")
	assert.Equal(t, domain.PhaseCastingComplete, state.Phase, "no interpreter, no further phases")
	assert.True(t, mr.Exists("test:session:remote"))
	assert.False(t, mr.Exists("test:lock:remote"), "lock released after the operation")

	require.NoError(t, rt.Close())
	assert.NoError(t, rt.Close(), "second close is a no-op")
}

func TestBuildRuntime_ProcessInterpreter(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	cfg := config.Default()
	cfg.Interpreter.Backend = config.InterpreterProcess
	cfg.Interpreter.Command = "sh"
	cfg.Interpreter.Args = []string{"-c", `echo "oracle says $HEXCAST_HEXAGRAM"`}

	rt, err := BuildRuntime(cfg, logging.NewNop())
	require.NoError(t, err)
	defer rt.Close()

	state := runFlow(t, rt, "scripted", "q")
	assert.Equal(t, domain.PhasePersisted, state.Phase)
	require.NotNil(t, state.Reading)
	assert.Equal(t, "oracle says "+strconv.Itoa(state.Reading.Hexagram.Number), state.Interpretation)
}

func TestBuildRuntime_ContentDir(t *testing.T) {
	cfg := config.Default()
	cfg.Content.Dir = filepath.Join(t.TempDir(), "missing")
	_, err := BuildRuntime(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "content")
}
