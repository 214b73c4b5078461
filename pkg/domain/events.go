package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPhaseChange EventType = "phase_change"
	EventEffect      EventType = "effect"
)

// EffectOutcome describes what happened to a guarded effect.
type EffectOutcome string

const (
	OutcomeIssued    EffectOutcome = "issued"
	OutcomeSkipped   EffectOutcome = "skipped" // latch already consumed or in flight
	OutcomeSucceeded EffectOutcome = "succeeded"
	OutcomeFailed    EffectOutcome = "failed"
	OutcomeDiscarded EffectOutcome = "discarded" // answered after a reset
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Generation string    `json:"generation"`
}

// PhaseEvent represents a transition of the orchestration machine.
type PhaseEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
	Mode Mode  `json:"mode,omitempty"`

	// Hexagram is set when the transition completed a cast.
	Hexagram int `json:"hexagram,omitempty"`
}

// EffectEvent represents a guarded side effect.
type EffectEvent struct {
	EventBase
	Effect  Effect        `json:"effect"`
	Outcome EffectOutcome `json:"outcome"`
	Err     error         `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
type LifecycleHooks struct {
	OnPhaseChange func(context.Context, *PhaseEvent)
	OnEffect      func(context.Context, *EffectEvent)
}

// MergeHooks combines several hook sets; each callback runs in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var phase []func(context.Context, *PhaseEvent)
	var effect []func(context.Context, *EffectEvent)
	for _, h := range hooks {
		if h.OnPhaseChange != nil {
			phase = append(phase, h.OnPhaseChange)
		}
		if h.OnEffect != nil {
			effect = append(effect, h.OnEffect)
		}
	}

	var out LifecycleHooks
	if len(phase) > 0 {
		out.OnPhaseChange = func(ctx context.Context, ev *PhaseEvent) {
			for _, fn := range phase {
				fn(ctx, ev)
			}
		}
	}
	if len(effect) > 0 {
		out.OnEffect = func(ctx context.Context, ev *EffectEvent) {
			for _, fn := range effect {
				fn(ctx, ev)
			}
		}
	}
	return out
}
