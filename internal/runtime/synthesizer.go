package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/prompt"
)

// Synthesizer merges collected opinions into the final answer with a single
// model call.
type Synthesizer struct {
	invoker ports.Invoker
	logger  *slog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(invoker ports.Invoker, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{invoker: invoker, logger: logger}
}

// Synthesize renders opinions in the order given and asks the moderator for a
// conclusion. A failed call is returned as *domain.InvokerError with
// Stage set to domain.StageSynthesis.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, opinions []domain.OpinionResult, cfg domain.ModelConfig) (string, error) {
	start := time.Now()
	text, err := s.invoker.Invoke(ctx, ports.InvokeRequest{
		Stage:    domain.StageSynthesis,
		Persona:  prompt.ModeratorPersona,
		Question: BuildSynthesisPrompt(question, FormatOpinions(opinions)),
		Model:    cfg,
	})
	if err != nil {
		s.logger.Error("synthesis failed", "err", err, "elapsed", time.Since(start))
		return "", &domain.InvokerError{Stage: domain.StageSynthesis, Err: err}
	}
	s.logger.Debug("synthesis done", "elapsed", time.Since(start))
	return text, nil
}
