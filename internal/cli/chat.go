package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/internal/presentation/tui"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
)

// RunChat runs an interactive panel conversation over the app's session.
// Every answer is appended to the session transcript.
func RunChat(ctx context.Context, app *App, in io.Reader, out io.Writer) error {
	interactive := isTerminal(out)
	if interactive {
		tui.PrintBanner(out)
	}

	state, err := app.Sessions.LoadOrStart(ctx, app.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	reg, err := registry.New(state.Experts...)
	if err != nil {
		return err
	}
	logSessionStatus(app, out, state, interactive)

	engine, err := app.NewEngine(ctx, streamHooks(out, reg.Snapshot()))
	if err != nil {
		return err
	}

	r := &panel.Runner{
		Input:    in,
		Output:   out,
		Headless: !interactive,
		Model:    func() domain.ModelConfig { return state.Model },
		OnAnswer: func(ctx context.Context, resp *domain.PanelResponse) error {
			return app.Sessions.AppendTurn(ctx, app.SessionID, domain.Turn{
				Question: resp.Question,
				Answer:   resp.FinalText,
				Opinions: resp.Opinions,
				Model:    resp.Model,
			})
		},
	}
	if interactive {
		r.Renderer = tui.NewRenderer()
	}

	return handleExecutionError(r.Run(ctx, engine, reg))
}

func logSessionStatus(app *App, out io.Writer, state *domain.SessionState, interactive bool) {
	app.Logger.Info("Session active", "session_id", state.ID, "turns", len(state.Transcript), "experts", len(state.Experts))
	if !interactive {
		return
	}
	if len(state.Transcript) > 0 {
		printSystemMessage(out, "Resuming session '%s' (%d previous turns).", state.ID, len(state.Transcript))
	} else {
		printSystemMessage(out, "Session '%s' active.", state.ID)
	}
	printSystemMessage(out, "%d experts on the panel, model %s.", len(state.Experts), state.Model)
}
