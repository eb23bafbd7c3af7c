package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsHooks(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()

	hooks.OnTransition(ctx, &domain.TransitionEvent{Op: domain.OpSelectPrompt})
	hooks.OnTransition(ctx, &domain.TransitionEvent{Op: domain.OpSelectPrompt, Err: errors.New("x")})
	hooks.OnCollaboratorReturn(ctx, &domain.CollaboratorEvent{Op: domain.OpComplete, Duration: time.Second, IsError: true})
	hooks.OnStateRepaired(ctx, &domain.RepairEvent{Reset: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("select_prompt", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("select_prompt", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollaboratorCalls.WithLabelValues("complete", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Repairs.WithLabelValues("true")))
}

func TestCombine(t *testing.T) {
	ctx := context.Background()
	var calls []string
	a := domain.LifecycleHooks{OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnTransition: func(context.Context, *domain.TransitionEvent) { calls = append(calls, "b") }}

	combined := observability.Combine(a, domain.LifecycleHooks{}, b)
	combined.OnTransition(ctx, &domain.TransitionEvent{})

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, combined.OnCollaboratorCall)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)

	hooks.OnStateRepaired(context.Background(), &domain.RepairEvent{
		EventBase: domain.EventBase{SessionID: "s1"},
		Repairs:   []string{"cursor clamped"},
	})

	assert.Contains(t, buf.String(), "State Repaired")
	assert.Contains(t, buf.String(), "session_id=s1")
}
