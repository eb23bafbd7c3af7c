package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/daydream/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level (repairs at warn).
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("Transition", "session_id", e.SessionID, "op", e.Op,
				"from", e.From, "to", e.To, "step", e.StepIndex, "err", e.Err)
		},
		OnCollaboratorCall: func(ctx context.Context, e *domain.CollaboratorEvent) {
			logger.Debug("Collaborator Call", "session_id", e.SessionID, "op", e.Op, "history_len", len(e.History))
		},
		OnCollaboratorReturn: func(ctx context.Context, e *domain.CollaboratorEvent) {
			logger.Debug("Collaborator Return", "session_id", e.SessionID, "op", e.Op,
				"duration", e.Duration, "is_error", e.IsError)
		},
		OnStateRepaired: func(ctx context.Context, e *domain.RepairEvent) {
			logger.Warn("State Repaired", "session_id", e.SessionID, "repairs", e.Repairs, "reset", e.Reset)
		},
	}
}

// Combine merges hooks; each event is delivered to every non-nil callback in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnCollaboratorCall = chain(out.OnCollaboratorCall, h.OnCollaboratorCall)
		out.OnCollaboratorReturn = chain(out.OnCollaboratorReturn, h.OnCollaboratorReturn)
		out.OnStateRepaired = chain(out.OnStateRepaired, h.OnStateRepaired)
	}
	return out
}

func chain[E any](first, second func(context.Context, E)) func(context.Context, E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		second(ctx, e)
	}
}
