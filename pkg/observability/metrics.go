package observability

import (
	"context"

	"github.com/aretw0/daydream/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	CollaboratorCalls    *prometheus.CounterVec
	CollaboratorDuration *prometheus.HistogramVec
	Repairs              *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daydream",
			Name:      "transitions_total",
			Help:      "Controller transactions by operation and result.",
		}, []string{"op", "result"}),
		CollaboratorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daydream",
			Name:      "collaborator_calls_total",
			Help:      "Expand and complete calls by result.",
		}, []string{"op", "result"}),
		CollaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "daydream",
			Name:      "collaborator_duration_seconds",
			Help:      "Latency of expand and complete calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"op"}),
		Repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daydream",
			Name:      "state_repairs_total",
			Help:      "Loaded records that needed repair, by whether they were discarded.",
		}, []string{"reset"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.CollaboratorCalls, m.CollaboratorDuration, m.Repairs)
	}
	return m
}

// Hooks returns lifecycle hooks that update m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.Op), result(e.Err != nil)).Inc()
		},
		OnCollaboratorReturn: func(_ context.Context, e *domain.CollaboratorEvent) {
			op := collaboratorName(e.Op)
			m.CollaboratorCalls.WithLabelValues(op, result(e.IsError)).Inc()
			m.CollaboratorDuration.WithLabelValues(op).Observe(e.Duration.Seconds())
		},
		OnStateRepaired: func(_ context.Context, e *domain.RepairEvent) {
			reset := "false"
			if e.Reset {
				reset = "true"
			}
			m.Repairs.WithLabelValues(reset).Inc()
		},
	}
}

func result(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}

func collaboratorName(op domain.Operation) string {
	if op == domain.OpComplete {
		return "complete"
	}
	return "expand"
}
