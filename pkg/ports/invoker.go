package ports

import (
	"context"

	"github.com/aretw0/panel/pkg/domain"
)

// InvokeRequest is everything a model call receives.
type InvokeRequest struct {
	// Stage tells the adapter whether this is an expert opinion or the synthesis call.
	Stage domain.Stage
	// ExpertID is empty for the synthesis stage.
	ExpertID string
	// Persona is the persona description, used verbatim.
	Persona string
	// Question is the user question (collection) or the rendered synthesis prompt.
	Question string
	Model    domain.ModelConfig
}

// Invoker is the single network-facing collaborator of the panel.
// Implementations may block on I/O and must honour ctx cancellation.
// The engine never retries and never caches: every call is made fresh.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (string, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req InvokeRequest) (string, error)

// Invoke calls f(ctx, req).
func (f InvokerFunc) Invoke(ctx context.Context, req InvokeRequest) (string, error) {
	return f(ctx, req)
}
