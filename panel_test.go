package panel_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/internal/testutils"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresInvoker(t *testing.T) {
	_, err := panel.New(nil)
	assert.Error(t, err)
}

func TestEngine_Ask(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats", "b", "loves dogs")
	stub := &testutils.StubInvoker{}

	var opinions int
	eng, err := panel.New(stub, panel.WithHooks(domain.Hooks{
		OnOpinion: func(context.Context, *domain.OpinionEvent) { opinions++ },
	}))
	require.NoError(t, err)

	resp, err := eng.Ask(context.Background(), reg, "pick a pet", domain.DefaultModelConfig())
	require.NoError(t, err)
	assert.Equal(t, "loves cats: yes", resp.Opinions[0].Text)
	assert.Equal(t, "loves dogs: yes", resp.Opinions[1].Text)
	assert.Equal(t, 2, opinions)
	assert.Same(t, stub, eng.Invoker())
}

func TestEngine_AskNilRegistry(t *testing.T) {
	stub := &testutils.StubInvoker{}
	eng, err := panel.New(stub)
	require.NoError(t, err)

	_, err = eng.Ask(context.Background(), nil, "hello?", domain.DefaultModelConfig())
	assert.ErrorIs(t, err, domain.ErrEmptyPanel)
	assert.Zero(t, stub.CallCount())
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, strings.TrimSpace(panel.Version))
}

func TestRunner_Run(t *testing.T) {
	reg := testutils.NewRegistry(t, "a", "loves cats")
	eng, err := panel.New(&testutils.StubInvoker{})
	require.NoError(t, err)

	var answered []string
	var out bytes.Buffer
	r := &panel.Runner{
		Input:    strings.NewReader("pick a pet\n\n   \nexit\nnever asked\n"),
		Output:   &out,
		Headless: true,
		Renderer: func(s string) (string, error) { return "[rendered] " + s, nil },
		OnAnswer: func(_ context.Context, resp *domain.PanelResponse) error {
			answered = append(answered, resp.Question)
			return nil
		},
	}

	require.NoError(t, r.Run(context.Background(), eng, reg))
	assert.Equal(t, []string{"pick a pet"}, answered)
	assert.Contains(t, out.String(), "[rendered] "+testutils.SynthesisPrefix)
	assert.NotContains(t, out.String(), "never asked")
}

func TestRunner_PrintsRequestErrorsAndContinues(t *testing.T) {
	eng, err := panel.New(&testutils.StubInvoker{})
	require.NoError(t, err)

	var out bytes.Buffer
	r := &panel.Runner{
		Input:    strings.NewReader("first\nsecond"),
		Output:   &out,
		Headless: true,
	}

	require.NoError(t, r.Run(context.Background(), eng, testutils.NewRegistry(t)))
	assert.Equal(t, 2, strings.Count(out.String(), "error: "+domain.ErrEmptyPanel.Error()))
}

func TestRunner_RequiresIO(t *testing.T) {
	eng, err := panel.New(&testutils.StubInvoker{})
	require.NoError(t, err)

	assert.Error(t, (&panel.Runner{Output: &bytes.Buffer{}}).Run(context.Background(), eng, nil))
	assert.Error(t, (&panel.Runner{Input: strings.NewReader("")}).Run(context.Background(), eng, nil))
}
