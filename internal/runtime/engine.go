package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/google/uuid"
)

// Engine runs one panel request end to end: validate, collect, synthesize.
type Engine struct {
	invoker       ports.Invoker
	hooks         domain.Hooks
	logger        *slog.Logger
	expertTimeout time.Duration
	limit         int

	collector   *Collector
	synthesizer *Synthesizer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks. Repeated calls are merged.
func WithHooks(hooks domain.Hooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithExpertTimeout bounds each expert call. Zero disables the bound.
// The synthesis call is never bounded by it.
func WithExpertTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.expertTimeout = d
	}
}

// WithConcurrencyLimit caps how many expert calls run at once. Zero or less
// means one goroutine per expert.
func WithConcurrencyLimit(n int) EngineOption {
	return func(e *Engine) {
		e.limit = n
	}
}

// NewEngine creates an engine around the given invoker.
func NewEngine(invoker ports.Invoker, opts ...EngineOption) *Engine {
	e := &Engine{
		invoker: invoker,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.collector = NewCollector(invoker, e.logger, e.expertTimeout, e.limit)
	e.synthesizer = NewSynthesizer(invoker, e.logger)
	return e
}

// Ask runs the panel against an immutable registry view.
//
// Errors, in the order they are checked: domain.ErrEmptyQuestion (and the
// other input sanitation errors), model validation errors,
// domain.ErrEmptyPanel, ctx.Err() if the caller gives up during collection,
// and *domain.InvokerError if the synthesis call fails. Expert failures are
// not errors; they are marked in the returned opinions.
func (e *Engine) Ask(ctx context.Context, view *registry.View, question string, cfg domain.ModelConfig) (*domain.PanelResponse, error) {
	requestID := uuid.NewString()
	logger := e.logger.With("request_id", requestID)
	start := time.Now()

	// Input rejections are reported under the collection stage.
	q, err := SanitizeQuestion(question)
	if err != nil {
		e.emitError(ctx, requestID, domain.StageCollection, err)
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		e.emitError(ctx, requestID, domain.StageCollection, err)
		return nil, err
	}
	if view == nil || view.Len() == 0 {
		e.emitError(ctx, requestID, domain.StageCollection, domain.ErrEmptyPanel)
		return nil, domain.ErrEmptyPanel
	}

	total := view.Len()
	logger.Debug("panel request started", "experts", total, "model", cfg.String())

	opinions, err := e.collector.Collect(ctx, view, q, cfg, func(index int, result domain.OpinionResult) {
		if e.hooks.OnOpinion != nil {
			e.hooks.OnOpinion(ctx, &domain.OpinionEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventOpinion, RequestID: requestID},
				Result:    result,
				Index:     index,
				Total:     total,
			})
		}
	})
	if err != nil {
		e.emitError(ctx, requestID, domain.StageCollection, err)
		return nil, err
	}

	failed := 0
	for _, o := range opinions {
		if !o.OK() {
			failed++
		}
	}
	if failed == total {
		logger.Warn("every expert failed, synthesizing from placeholders", "experts", total)
	}

	if e.hooks.OnSynthesisStart != nil {
		e.hooks.OnSynthesisStart(ctx, &domain.SynthesisEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSynthesisStart, RequestID: requestID},
			Question:  q,
			Failed:    failed,
			Total:     total,
		})
	}

	final, err := e.synthesizer.Synthesize(ctx, q, opinions, cfg)
	if err != nil {
		e.emitError(ctx, requestID, domain.StageSynthesis, err)
		return nil, err
	}

	resp := &domain.PanelResponse{
		Question:  q,
		FinalText: final,
		Opinions:  opinions,
		Model:     cfg,
	}
	elapsed := time.Since(start)
	logger.Info("panel answered", "experts", total, "failed", failed, "elapsed", elapsed)

	if e.hooks.OnResponse != nil {
		e.hooks.OnResponse(ctx, &domain.ResponseEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventResponse, RequestID: requestID},
			Response:  resp,
			Elapsed:   elapsed,
		})
	}
	return resp, nil
}

func (e *Engine) emitError(ctx context.Context, requestID string, stage domain.Stage, err error) {
	if e.hooks.OnError == nil {
		return
	}
	var expertID string
	var ie *domain.InvokerError
	if errors.As(err, &ie) {
		stage, expertID = ie.Stage, ie.ExpertID
	}
	e.hooks.OnError(ctx, &domain.ErrorEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventError, RequestID: requestID},
		Stage:     stage,
		ExpertID:  expertID,
		Err:       err,
		Message:   err.Error(),
	})
}
