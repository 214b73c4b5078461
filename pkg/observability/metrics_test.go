package observability_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/observability"
	"github.com/aretw0/hexcast/pkg/ports"
	"github.com/aretw0/hexcast/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sums 7,8,7,9,7,8: hexagram 49 with line 4 changing.
var revolution = [][]int{{2, 2, 3}, {2, 3, 3}, {3, 2, 2}, {3, 3, 3}, {2, 3, 2}, {3, 3, 2}}

func castRevolution(t *testing.T, s *session.Session) {
	t.Helper()
	require.NoError(t, s.Start(domain.ModeManual, "what changes?"))
	for i, draws := range revolution {
		complete, err := s.AddDraws(draws...)
		require.NoError(t, err)
		require.Equal(t, i == len(revolution)-1, complete)
	}
}

func TestMetrics_Hooks(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	interp := ports.InterpreterFunc(func(context.Context, ports.InterpretationRequest) (string, error) {
		return "Shed the old skin.", nil
	})
	s := session.New("metrics", session.WithInterpreter(interp), session.WithLifecycleHooks(metrics.Hooks()))

	castRevolution(t, s)
	_, err := s.Evaluate(context.Background(), domain.Caller{})
	require.NoError(t, err)
	_, err = s.Evaluate(context.Background(), domain.Caller{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Casts.WithLabelValues("manual")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Hexagrams.WithLabelValues("49")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("idle", "casting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("casting", "casting_complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Effects.WithLabelValues("interpretation", "issued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Effects.WithLabelValues("interpretation", "succeeded")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Latency))
}

func TestMetrics_FailureOutcome(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	interp := ports.InterpreterFunc(func(context.Context, ports.InterpretationRequest) (string, error) {
		return "", errors.New("upstream down")
	})
	s := session.New("failing", session.WithInterpreter(interp), session.WithLifecycleHooks(metrics.Hooks()))

	castRevolution(t, s)
	_, err := s.Evaluate(context.Background(), domain.Caller{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Effects.WithLabelValues("interpretation", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Effects.WithLabelValues("interpretation", "succeeded")))
}

func TestMetrics_Handler(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := session.New("exposed", session.WithLifecycleHooks(metrics.Hooks()))
	castRevolution(t, s)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hexcast_hexagrams_total{number="49"} 1`)

	expected := `
# HELP hexcast_casts_total Completed casts by mode.
# TYPE hexcast_casts_total counter
hexcast_casts_total{mode="manual"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(metrics.Casts, strings.NewReader(expected)))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug, false)
	interp := ports.InterpreterFunc(func(context.Context, ports.InterpretationRequest) (string, error) {
		return "", errors.New("boom")
	})
	s := session.New("logged", session.WithInterpreter(interp), session.WithLifecycleHooks(observability.LogHooks(logger)))

	castRevolution(t, s)
	_, _ = s.Evaluate(context.Background(), domain.Caller{})

	out := buf.String()
	assert.Contains(t, out, "msg=phase_change")
	assert.Contains(t, out, "hexagram=49")
	assert.Contains(t, out, "msg=effect_failed")
	assert.Contains(t, out, "err=boom")
}
