package echo_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/panel/pkg/adapters/echo"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoker_Contract(t *testing.T) {
	tests.InvokerContractTest(t, echo.New())
}

func TestInvoker_Expert(t *testing.T) {
	inv := echo.New(echo.WithReply("yes"))
	got, err := inv.Invoke(context.Background(), ports.InvokeRequest{
		Stage:   domain.StageCollection,
		Persona: "loves cats",
	})
	require.NoError(t, err)
	assert.Equal(t, "loves cats: yes", got)
}

func TestInvoker_SynthesisCountsOpinions(t *testing.T) {
	inv := echo.New()
	got, err := inv.Invoke(context.Background(), ports.InvokeRequest{
		Stage:    domain.StageSynthesis,
		Question: "A OPINION:\nx\n\n(b could not produce an answer: timeout: slow)\n\nC OPINION:\ny",
		Model:    domain.DefaultModelConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Moderator: 2 of 3 experts answered (model gpt-4o-mini).", got)
}

func TestInvoker_DelayHonoursContext(t *testing.T) {
	inv := echo.New(echo.WithDelay(time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := inv.Invoke(ctx, ports.InvokeRequest{Persona: "p"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
