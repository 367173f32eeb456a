package runtime_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/panel/internal/runtime"
	"github.com/aretw0/panel/internal/testutils"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Ask_CatsAndDogs(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats", "b", "loves dogs")
	stub := &testutils.StubInvoker{}
	engine := runtime.NewEngine(stub)

	resp, err := engine.Ask(context.Background(), reg.Snapshot(), "pick a pet", domain.DefaultModelConfig())
	require.NoError(t, err)

	require.Len(t, resp.Opinions, 2)
	assert.Equal(t, "a", resp.Opinions[0].ExpertID)
	assert.Equal(t, "loves cats: yes", resp.Opinions[0].Text)
	assert.Equal(t, "b", resp.Opinions[1].ExpertID)
	assert.Equal(t, "loves dogs: yes", resp.Opinions[1].Text)
	assert.Equal(t, "pick a pet", resp.Question)

	synth, ok := stub.SynthesisCall()
	require.True(t, ok, "synthesis call must be made")
	assert.Empty(t, synth.ExpertID)

	cats := strings.Index(synth.Question, "A OPINION:\nloves cats: yes")
	dogs := strings.Index(synth.Question, "B OPINION:\nloves dogs: yes")
	question := strings.Index(synth.Question, "pick a pet")
	assert.GreaterOrEqual(t, cats, 0)
	assert.Greater(t, dogs, cats)
	assert.Greater(t, question, dogs)

	assert.Equal(t, testutils.SynthesisPrefix+synth.Question, resp.FinalText)
	assert.Equal(t, 3, stub.CallCount())
}

func TestEngine_Ask_MiddleExpertTimesOut(t *testing.T) {
	reg := testutils.NewRegistry(t, "first", "p1", "second", "p2", "third", "p3")
	stub := &testutils.StubInvoker{Failures: map[string]error{"second": testutils.ErrSimulatedTimeout}}
	engine := runtime.NewEngine(stub)

	resp, err := engine.Ask(context.Background(), reg.Snapshot(), "status?", domain.DefaultModelConfig())
	require.NoError(t, err)

	require.Len(t, resp.Opinions, 3)
	assert.True(t, resp.Opinions[0].OK())
	require.False(t, resp.Opinions[1].OK())
	assert.Equal(t, domain.OpinionTimeout, resp.Opinions[1].Err.Kind)
	assert.True(t, resp.Opinions[2].OK())
	assert.Equal(t, []string{"second"}, resp.Failed())

	synth, ok := stub.SynthesisCall()
	require.True(t, ok)
	assert.Contains(t, synth.Question, "(second could not produce an answer: timeout: simulated timeout)")
	assert.Contains(t, resp.FinalText, "(second could not produce an answer")
}

func TestEngine_Ask_EmptyPanelMakesNoCalls(t *testing.T) {
	stub := &testutils.StubInvoker{}
	engine := runtime.NewEngine(stub)

	_, err := engine.Ask(context.Background(), testutils.NewRegistry(t).Snapshot(), "anyone?", domain.DefaultModelConfig())
	assert.ErrorIs(t, err, domain.ErrEmptyPanel)
	assert.Zero(t, stub.CallCount())
}

func TestEngine_Ask_EmptyQuestion(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats")
	stub := &testutils.StubInvoker{}
	engine := runtime.NewEngine(stub)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := engine.Ask(context.Background(), reg.Snapshot(), q, domain.DefaultModelConfig())
		assert.ErrorIs(t, err, domain.ErrEmptyQuestion, "question %q", q)
	}
	assert.Zero(t, stub.CallCount())
}

func TestEngine_Ask_EmptyQuestionCheckedBeforePanel(t *testing.T) {
	engine := runtime.NewEngine(&testutils.StubInvoker{})

	_, err := engine.Ask(context.Background(), nil, "", domain.DefaultModelConfig())
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestEngine_Ask_InvalidModel(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats")
	stub := &testutils.StubInvoker{}
	engine := runtime.NewEngine(stub)

	_, err := engine.Ask(context.Background(), reg.Snapshot(), "q", domain.ModelConfig{ModelName: "gpt-2", Temperature: 1})
	assert.ErrorIs(t, err, domain.ErrUnsupportedModel)

	_, err = engine.Ask(context.Background(), reg.Snapshot(), "q", domain.ModelConfig{ModelName: "gpt-4o", Temperature: 2.5})
	assert.ErrorIs(t, err, domain.ErrInvalidTemperature)
	assert.Zero(t, stub.CallCount())
}

func TestEngine_Ask_RejectionsEmitErrorEvent(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats")
	empty := testutils.NewRegistry(t)

	cases := []struct {
		name     string
		reg      *registry.Registry
		question string
		cfg      domain.ModelConfig
		want     error
	}{
		{"Empty Question", reg, "  ", domain.DefaultModelConfig(), domain.ErrEmptyQuestion},
		{"Unsupported Model", reg, "q", domain.ModelConfig{ModelName: "gpt-2", Temperature: 1}, domain.ErrUnsupportedModel},
		{"Empty Panel", empty, "q", domain.DefaultModelConfig(), domain.ErrEmptyPanel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var events []*domain.ErrorEvent
			engine := runtime.NewEngine(&testutils.StubInvoker{}, runtime.WithHooks(domain.Hooks{
				OnError: func(_ context.Context, e *domain.ErrorEvent) { events = append(events, e) },
			}))

			_, err := engine.Ask(context.Background(), tc.reg.Snapshot(), tc.question, tc.cfg)
			require.ErrorIs(t, err, tc.want)
			require.Len(t, events, 1)
			assert.Equal(t, domain.EventError, events[0].Type)
			assert.Equal(t, domain.StageCollection, events[0].Stage)
			assert.ErrorIs(t, events[0].Err, tc.want)
			assert.NotEmpty(t, events[0].RequestID)
		})
	}
}

func TestEngine_Ask_ModelConfigReachesEveryCall(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "1", "b", "2")
	stub := &testutils.StubInvoker{}
	engine := runtime.NewEngine(stub)
	cfg := domain.ModelConfig{ModelName: "gpt-4o", Temperature: 1.3}

	resp, err := engine.Ask(context.Background(), reg.Snapshot(), "q", cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, resp.Model)
	for _, c := range stub.Calls() {
		assert.Equal(t, cfg, c.Model)
	}
}

func TestEngine_Ask_AllExpertsFailStillSynthesizes(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "1", "b", "2")
	boom := errors.New("down")
	stub := &testutils.StubInvoker{Failures: map[string]error{"a": boom, "b": boom}}
	engine := runtime.NewEngine(stub)

	resp, err := engine.Ask(context.Background(), reg.Snapshot(), "q", domain.DefaultModelConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.Failed())
	_, ok := stub.SynthesisCall()
	assert.True(t, ok)
}

func TestEngine_Ask_SynthesisFailure(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "1")
	stub := &testutils.StubInvoker{SynthesisErr: errors.New("503 from upstream")}

	var errEvents []*domain.ErrorEvent
	engine := runtime.NewEngine(stub, runtime.WithHooks(domain.Hooks{
		OnError: func(_ context.Context, e *domain.ErrorEvent) { errEvents = append(errEvents, e) },
	}))

	resp, err := engine.Ask(context.Background(), reg.Snapshot(), "q", domain.DefaultModelConfig())
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvoker)

	var ie *domain.InvokerError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, domain.StageSynthesis, ie.Stage)
	assert.Empty(t, ie.ExpertID)
	assert.EqualError(t, ie.Err, "503 from upstream")

	require.Len(t, errEvents, 1)
	assert.Equal(t, domain.StageSynthesis, errEvents[0].Stage)
}

func TestEngine_Ask_Cancellation(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "1", "b", "2")
	stub := &testutils.StubInvoker{Latency: func(ports.InvokeRequest) time.Duration { return time.Minute }}
	engine := runtime.NewEngine(stub)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := engine.Ask(ctx, reg.Snapshot(), "q", domain.DefaultModelConfig())
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := stub.SynthesisCall()
	assert.False(t, ok, "synthesis must not run after cancellation")
}

func TestEngine_Ask_Hooks(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "1", "b", "2", "c", "3")
	stub := &testutils.StubInvoker{
		Failures: map[string]error{"c": errors.New("nope")},
		Latency:  testutils.RandomLatency(3 * time.Millisecond),
	}

	var opinions []*domain.OpinionEvent
	var synth *domain.SynthesisEvent
	var done *domain.ResponseEvent
	engine := runtime.NewEngine(stub, runtime.WithHooks(domain.Hooks{
		OnOpinion:        func(_ context.Context, e *domain.OpinionEvent) { opinions = append(opinions, e) },
		OnSynthesisStart: func(_ context.Context, e *domain.SynthesisEvent) { synth = e },
		OnResponse:       func(_ context.Context, e *domain.ResponseEvent) { done = e },
	}))

	resp, err := engine.Ask(context.Background(), reg.Snapshot(), "q", domain.DefaultModelConfig())
	require.NoError(t, err)

	require.Len(t, opinions, 3)
	seen := map[int]string{}
	for _, e := range opinions {
		assert.Equal(t, 3, e.Total)
		assert.Equal(t, domain.EventOpinion, e.Type)
		assert.Equal(t, opinions[0].RequestID, e.RequestID)
		seen[e.Index] = e.Result.ExpertID
	}
	assert.Equal(t, map[int]string{0: "a", 1: "b", 2: "c"}, seen)

	require.NotNil(t, synth)
	assert.Equal(t, 1, synth.Failed)
	assert.Equal(t, 3, synth.Total)

	require.NotNil(t, done)
	assert.Same(t, resp, done.Response)
	assert.Equal(t, opinions[0].RequestID, done.RequestID)
}

func TestEngine_Ask_SnapshotIgnoresLaterEdits(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats", "b", "loves dogs")
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	inv := ports.InvokerFunc(func(ctx context.Context, req ports.InvokeRequest) (string, error) {
		if req.Stage == domain.StageCollection {
			started <- struct{}{}
			<-release
		}
		return req.Persona, nil
	})
	engine := runtime.NewEngine(inv)

	type result struct {
		resp *domain.PanelResponse
		err  error
	}
	out := make(chan result, 1)
	view := reg.Snapshot()
	go func() {
		resp, err := engine.Ask(context.Background(), view, "q", domain.DefaultModelConfig())
		out <- result{resp, err}
	}()

	<-started
	<-started
	require.NoError(t, reg.Register(testutils.Expert("c", "loves birds")))
	require.NoError(t, reg.Update(testutils.Expert("a", "now hates cats")))
	close(release)

	r := <-out
	require.NoError(t, r.err)
	require.Len(t, r.resp.Opinions, 2)
	assert.Equal(t, "loves cats", r.resp.Opinions[0].Text)
	assert.Equal(t, 3, reg.Len())
}
