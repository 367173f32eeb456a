package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/panel/internal/presentation/tui"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
)

// AskOptions control the one-shot ask command.
type AskOptions struct {
	JSON bool
	Out  io.Writer
}

// streamHooks print every opinion as it arrives and announce the synthesis.
func streamHooks(out io.Writer, roster *registry.View) domain.Hooks {
	return domain.Hooks{
		OnOpinion: func(ctx context.Context, e *domain.OpinionEvent) {
			expert, ok := roster.Get(e.Result.ExpertID)
			if !ok {
				expert = domain.Expert{ID: e.Result.ExpertID}
			}
			fmt.Fprintf(out, "%s\n%s\n\n", tui.ExpertHeading(expert, e.Result), tui.OpinionBody(e.Result))
		},
		OnSynthesisStart: func(ctx context.Context, e *domain.SynthesisEvent) {
			printSystemMessage(out, "Moderator is synthesizing %d of %d opinions...", e.Total-e.Failed, e.Total)
		},
	}
}

// RunAsk asks the session's panel one question and prints the result.
func RunAsk(ctx context.Context, app *App, question string, opts AskOptions) error {
	state, err := app.Sessions.LoadOrStart(ctx, app.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	reg, err := registry.New(state.Experts...)
	if err != nil {
		return err
	}

	var hooks []domain.Hooks
	if !opts.JSON {
		hooks = append(hooks, streamHooks(opts.Out, reg.Snapshot()))
	}
	engine, err := app.NewEngine(ctx, hooks...)
	if err != nil {
		return err
	}

	resp, err := app.Sessions.Ask(ctx, app.SessionID, engine, question)
	if err != nil && resp == nil {
		return handleExecutionError(err)
	}
	if err != nil {
		app.Logger.Warn("transcript not saved", "session_id", app.SessionID, "err", err)
	}

	if opts.JSON {
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}

	output := resp.FinalText
	if isTerminal(opts.Out) {
		if rendered, err := tui.NewRenderer()(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(opts.Out, strings.TrimSpace(output))
	if n := len(resp.Failed()); n > 0 {
		printSystemMessage(opts.Out, "%d of %d experts could not answer.", n, len(resp.Opinions))
	}
	return nil
}
