package panel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/internal/runtime"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/registry"
)

// Engine is the high-level entry point for the panel library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime       *runtime.Engine
	invoker       ports.Invoker
	hooks         domain.Hooks
	logger        *slog.Logger
	expertTimeout time.Duration
	limit         int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks. Repeated calls are merged in order.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithExpertTimeout bounds every individual expert call.
// An expert that runs out of time is recorded as a timeout failure.
func WithExpertTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.expertTimeout = d
	}
}

// WithConcurrencyLimit caps how many expert calls are in flight at once.
func WithConcurrencyLimit(n int) Option {
	return func(e *Engine) {
		e.limit = n
	}
}

// New initializes a panel Engine that talks to models through invoker.
func New(invoker ports.Invoker, opts ...Option) (*Engine, error) {
	if invoker == nil {
		return nil, errors.New("panel: invoker is required")
	}
	eng := &Engine{invoker: invoker}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized so the runtime never logs to a nil handler
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	eng.runtime = runtime.NewEngine(invoker,
		runtime.WithLogger(eng.logger),
		runtime.WithHooks(eng.hooks),
		runtime.WithExpertTimeout(eng.expertTimeout),
		runtime.WithConcurrencyLimit(eng.limit),
	)
	return eng, nil
}

// Ask consults every expert currently registered in reg and returns the
// synthesized answer together with the individual opinions.
//
// The roster is snapshotted once at the start; edits to reg while the
// request is in flight do not affect it.
func (e *Engine) Ask(ctx context.Context, reg *registry.Registry, question string, cfg domain.ModelConfig) (*domain.PanelResponse, error) {
	var view *registry.View
	if reg != nil {
		view = reg.Snapshot()
	}
	return e.runtime.Ask(ctx, view, question, cfg)
}

// AskView runs the panel against an explicit roster snapshot.
func (e *Engine) AskView(ctx context.Context, view *registry.View, question string, cfg domain.ModelConfig) (*domain.PanelResponse, error) {
	return e.runtime.Ask(ctx, view, question, cfg)
}

// Invoker returns the model invoker the engine was built with.
func (e *Engine) Invoker() ports.Invoker {
	return e.invoker
}
