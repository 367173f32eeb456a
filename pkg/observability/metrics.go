package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the panel collectors.
type Metrics struct {
	opinions  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	requests  *prometheus.CounterVec
	allFailed prometheus.Counter

	// synthesis start time per request id
	started sync.Map
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		opinions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panel_opinions_total",
				Help: "Expert opinions collected, by expert and outcome (ok, timeout, canceled, invoker).",
			},
			[]string{"expert_id", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panel_invoke_duration_seconds",
				Help:    "Duration of model calls by stage.",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
			},
			[]string{"stage"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panel_requests_total",
				Help: "Panel requests by outcome (ok, error).",
			},
			[]string{"outcome"},
		),
		allFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "panel_all_experts_failed_total",
			Help: "Panel requests that reached synthesis without a single expert answer.",
		}),
	}

	var err error
	if m.opinions, err = register(reg, m.opinions); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.allFailed, err = register(reg, m.allFailed); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already registered under the same
// descriptor, so several engines in one process share their series.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnOpinion: func(_ context.Context, e *domain.OpinionEvent) {
			outcome := "ok"
			if e.Result.Err != nil {
				outcome = string(e.Result.Err.Kind)
			}
			m.opinions.WithLabelValues(e.Result.ExpertID, outcome).Inc()
			m.duration.WithLabelValues(string(domain.StageCollection)).Observe(e.Result.Elapsed.Seconds())
		},
		OnSynthesisStart: func(_ context.Context, e *domain.SynthesisEvent) {
			if e.Total > 0 && e.Failed == e.Total {
				m.allFailed.Inc()
			}
			m.started.Store(e.RequestID, e.Timestamp)
		},
		OnResponse: func(_ context.Context, e *domain.ResponseEvent) {
			m.requests.WithLabelValues("ok").Inc()
			if v, ok := m.started.LoadAndDelete(e.RequestID); ok {
				m.duration.WithLabelValues(string(domain.StageSynthesis)).Observe(e.Timestamp.Sub(v.(time.Time)).Seconds())
			}
		},
		OnError: func(_ context.Context, e *domain.ErrorEvent) {
			m.requests.WithLabelValues("error").Inc()
			m.started.Delete(e.RequestID)
		},
	}
}
