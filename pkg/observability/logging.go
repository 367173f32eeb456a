package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/panel/pkg/domain"
)

// LogHooks returns hooks that log every lifecycle event at debug level
// (errors at warn).
func LogHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnOpinion: func(ctx context.Context, e *domain.OpinionEvent) {
			attrs := []any{
				"request_id", e.RequestID,
				"expert_id", e.Result.ExpertID,
				"index", e.Index,
				"total", e.Total,
				"elapsed", e.Result.Elapsed,
			}
			if e.Result.Err != nil {
				attrs = append(attrs, "kind", e.Result.Err.Kind, "err", e.Result.Err.Message)
			}
			logger.DebugContext(ctx, "opinion", attrs...)
		},
		OnSynthesisStart: func(ctx context.Context, e *domain.SynthesisEvent) {
			logger.DebugContext(ctx, "synthesis_start", "request_id", e.RequestID, "failed", e.Failed, "total", e.Total)
		},
		OnResponse: func(ctx context.Context, e *domain.ResponseEvent) {
			logger.DebugContext(ctx, "response", "request_id", e.RequestID, "elapsed", e.Elapsed, "chars", len(e.Response.FinalText))
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.WarnContext(ctx, "panel_error", "request_id", e.RequestID, "stage", e.Stage, "expert_id", e.ExpertID, "err", e.Message)
		},
	}
}
