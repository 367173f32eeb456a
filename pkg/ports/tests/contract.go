package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
)

// InvokerContractTest is a reusable test suite that verifies if an adapter
// complies with ports.Invoker. The invoker must answer any well-formed
// request with non-empty text.
func InvokerContractTest(t *testing.T, inv ports.Invoker) {
	t.Helper()

	req := ports.InvokeRequest{
		Stage:    domain.StageCollection,
		ExpertID: "contract",
		Persona:  "a careful reviewer",
		Question: "is this contract honoured?",
		Model:    domain.DefaultModelConfig(),
	}

	t.Run("Invoke_Success", func(t *testing.T) {
		text, err := inv.Invoke(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text == "" {
			t.Error("expected non-empty text")
		}
	})

	t.Run("Invoke_Synthesis", func(t *testing.T) {
		synth := req
		synth.Stage = domain.StageSynthesis
		synth.ExpertID = ""
		if _, err := inv.Invoke(context.Background(), synth); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Invoke_Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := inv.Invoke(ctx, req)
		if err == nil {
			t.Fatal("expected error for canceled context, got nil")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled in chain, got %v", err)
		}
	})
}
