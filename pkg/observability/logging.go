package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/hexcast/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event on logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseChange: func(ctx context.Context, ev *domain.PhaseEvent) {
			attrs := []any{
				"session_id", ev.SessionID,
				"from", ev.From,
				"to", ev.To,
			}
			if ev.Hexagram > 0 {
				attrs = append(attrs, "hexagram", ev.Hexagram, "mode", ev.Mode)
			}
			logger.DebugContext(ctx, "phase_change", attrs...)
		},
		OnEffect: func(ctx context.Context, ev *domain.EffectEvent) {
			if ev.Outcome == domain.OutcomeFailed {
				logger.WarnContext(ctx, "effect_failed",
					"session_id", ev.SessionID,
					"effect", ev.Effect,
					"error", ev.Err,
				)
				return
			}
			logger.DebugContext(ctx, "effect",
				"session_id", ev.SessionID,
				"effect", ev.Effect,
				"outcome", ev.Outcome,
			)
		},
	}
}
