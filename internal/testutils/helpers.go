package testutils

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/stretchr/testify/require"
)

// SynthesisPrefix starts every synthesis answer of StubInvoker.
const SynthesisPrefix = "FINAL\n"

// ErrSimulatedTimeout behaves like a network timeout (Timeout() == true).
var ErrSimulatedTimeout error = timeoutErr{}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "simulated timeout" }
func (timeoutErr) Timeout() bool { return true }

// StubInvoker is a deterministic ports.Invoker for tests.
// Experts answer "<persona>: yes"; the synthesis call answers
// SynthesisPrefix followed by the prompt it received. It records every call.
type StubInvoker struct {
	// Latency, when set, delays each call; the call still honours ctx.
	Latency func(req ports.InvokeRequest) time.Duration
	// Failures maps expert ids to the error their calls return.
	Failures map[string]error
	// SynthesisErr, when set, fails the synthesis call.
	SynthesisErr error

	mu    sync.Mutex
	calls []ports.InvokeRequest
}

// Invoke implements ports.Invoker.
func (s *StubInvoker) Invoke(ctx context.Context, req ports.InvokeRequest) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.Latency != nil {
		if d := s.Latency(req); d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if req.Stage == domain.StageSynthesis {
		if s.SynthesisErr != nil {
			return "", s.SynthesisErr
		}
		return SynthesisPrefix + req.Question, nil
	}
	if err, ok := s.Failures[req.ExpertID]; ok {
		return "", err
	}
	return req.Persona + ": yes", nil
}

// Calls returns a copy of the recorded requests in arrival order.
func (s *StubInvoker) Calls() []ports.InvokeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.InvokeRequest(nil), s.calls...)
}

// CallCount returns how many calls were made.
func (s *StubInvoker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// SynthesisCall returns the synthesis request, if one was made.
func (s *StubInvoker) SynthesisCall() (ports.InvokeRequest, bool) {
	for _, c := range s.Calls() {
		if c.Stage == domain.StageSynthesis {
			return c, true
		}
	}
	return ports.InvokeRequest{}, false
}

// RandomLatency returns a Latency func that waits up to max for expert calls
// and not at all for the synthesis call.
func RandomLatency(max time.Duration) func(ports.InvokeRequest) time.Duration {
	return func(req ports.InvokeRequest) time.Duration {
		if req.Stage == domain.StageSynthesis || max <= 0 {
			return 0
		}
		return rand.N(max)
	}
}

// Expert builds an expert with just an id and a description.
func Expert(id, description string) domain.Expert {
	return domain.Expert{ID: id, Description: description}
}

// NewRegistry builds a registry from alternating id/description pairs.
// It fails the test immediately on error.
func NewRegistry(t *testing.T, pairs ...string) *registry.Registry {
	t.Helper()
	require.True(t, len(pairs)%2 == 0, "NewRegistry needs id/description pairs")

	experts := make([]domain.Expert, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		experts = append(experts, Expert(pairs[i], pairs[i+1]))
	}
	reg, err := registry.New(experts...)
	require.NoError(t, err, "Failed to build registry")
	return reg
}
