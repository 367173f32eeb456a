package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/panel/internal/runtime"
	"github.com/aretw0/panel/internal/testutils"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsPanelRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	experts := testutils.NewRegistry(t, "a", "1", "b", "2")
	stub := &testutils.StubInvoker{Failures: map[string]error{"b": testutils.ErrSimulatedTimeout}}
	engine := runtime.NewEngine(stub, runtime.WithHooks(m.Hooks()))

	_, err = engine.Ask(context.Background(), experts.Snapshot(), "q", domain.DefaultModelConfig())
	require.NoError(t, err)

	expected := `
# HELP panel_opinions_total Expert opinions collected, by expert and outcome (ok, timeout, canceled, invoker).
# TYPE panel_opinions_total counter
panel_opinions_total{expert_id="a",outcome="ok"} 1
panel_opinions_total{expert_id="b",outcome="timeout"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "panel_opinions_total"))

	n, err := testutil.GatherAndCount(reg, "panel_invoke_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per stage")
}

func TestMetrics_AllFailedAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	experts := testutils.NewRegistry(t, "a", "1")
	stub := &testutils.StubInvoker{
		Failures:     map[string]error{"a": errors.New("down")},
		SynthesisErr: errors.New("also down"),
	}
	engine := runtime.NewEngine(stub, runtime.WithHooks(m.Hooks()))

	_, err = engine.Ask(context.Background(), experts.Snapshot(), "q", domain.DefaultModelConfig())
	require.Error(t, err)

	expected := `
# HELP panel_all_experts_failed_total Panel requests that reached synthesis without a single expert answer.
# TYPE panel_all_experts_failed_total counter
panel_all_experts_failed_total 1
# HELP panel_requests_total Panel requests by outcome (ok, error).
# TYPE panel_requests_total counter
panel_requests_total{outcome="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected),
		"panel_all_experts_failed_total", "panel_requests_total"))
}

func TestNewMetrics_TwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.NoError(t, err)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LogHooks(logger)

	hooks.OnOpinion(context.Background(), &domain.OpinionEvent{
		EventBase: domain.EventBase{RequestID: "r1"},
		Result:    domain.OpinionResult{ExpertID: "a", Elapsed: time.Second},
	})
	hooks.OnError(context.Background(), &domain.ErrorEvent{
		EventBase: domain.EventBase{RequestID: "r1"},
		Stage:     domain.StageSynthesis,
		Message:   "boom",
	})

	out := buf.String()
	assert.Contains(t, out, "expert_id=a")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "err=boom")
}
