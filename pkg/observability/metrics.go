package observability

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hexcast"

// Metrics holds the collectors fed by session hooks.
type Metrics struct {
	registry prometheus.Gatherer

	Casts       *prometheus.CounterVec
	Hexagrams   *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Effects     *prometheus.CounterVec
	Latency     *prometheus.HistogramVec

	mu     sync.Mutex
	issued map[string]time.Time
}

// NewMetrics creates the collectors and registers them on reg.
// It panics if they are already registered, like prometheus.MustRegister.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		Casts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casts_total",
			Help:      "Completed casts by mode.",
		}, []string{"mode"}),
		Hexagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hexagrams_total",
			Help:      "Primary hexagrams cast, by King Wen number.",
		}, []string{"number"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Session phase transitions.",
		}, []string{"from", "to"}),
		Effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effects_total",
			Help:      "Guarded side effects by outcome.",
		}, []string{"effect", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "effect_duration_seconds",
			Help:      "Time from issuing a side effect to its result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"effect"}),
		issued: make(map[string]time.Time),
	}
	reg.MustRegister(m.Casts, m.Hexagrams, m.Transitions, m.Effects, m.Latency)
	return m
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: m.onPhaseChange,
		OnEffect:      m.onEffect,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) onPhaseChange(_ context.Context, ev *domain.PhaseEvent) {
	m.Transitions.WithLabelValues(string(ev.From), string(ev.To)).Inc()
	if ev.To == domain.PhaseCastingComplete && ev.Hexagram > 0 {
		m.Casts.WithLabelValues(string(ev.Mode)).Inc()
		m.Hexagrams.WithLabelValues(strconv.Itoa(ev.Hexagram)).Inc()
	}
}

func (m *Metrics) onEffect(_ context.Context, ev *domain.EffectEvent) {
	m.Effects.WithLabelValues(string(ev.Effect), string(ev.Outcome)).Inc()

	key := ev.SessionID + "/" + ev.Generation + "/" + string(ev.Effect)
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.Outcome {
	case domain.OutcomeIssued:
		m.issued[key] = ev.Timestamp
	case domain.OutcomeSucceeded, domain.OutcomeFailed, domain.OutcomeDiscarded:
		if start, ok := m.issued[key]; ok {
			delete(m.issued, key)
			m.Latency.WithLabelValues(string(ev.Effect)).Observe(ev.Timestamp.Sub(start).Seconds())
		}
	}
}
