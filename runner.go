package panel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
)

// Runner handles an interactive question loop over the provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	// Model returns the model parameters for the next question.
	// Nil means domain.DefaultModelConfig().
	Model func() domain.ModelConfig
	// OnAnswer is called after every successful answer, e.g. to persist a transcript turn.
	OnAnswer func(ctx context.Context, resp *domain.PanelResponse) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Run reads one question per line and prints the synthesized answer until
// EOF, "exit" or "quit". Request-level errors (empty question, empty panel,
// failed synthesis) are printed and the loop continues; IO errors and
// context cancellation end it.
func (r *Runner) Run(ctx context.Context, engine *Engine, reg *registry.Registry) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	writer := r.Output

	if !r.Headless {
		fmt.Fprintln(writer, "--- Panel chat (type 'exit' to leave) ---")
	}

	for {
		if !r.Headless {
			fmt.Fprint(writer, "> ")
		}
		text, err := lineReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		question := strings.TrimSpace(text)
		if question == "exit" || question == "quit" {
			if !r.Headless {
				fmt.Fprintln(writer, "Bye!")
			}
			return nil
		}
		if question != "" {
			if err := r.ask(ctx, engine, reg, question); err != nil {
				return err
			}
		}
		if eof {
			return nil
		}
	}
}

func (r *Runner) ask(ctx context.Context, engine *Engine, reg *registry.Registry, question string) error {
	cfg := domain.DefaultModelConfig()
	if r.Model != nil {
		cfg = r.Model()
	}

	resp, err := engine.Ask(ctx, reg, question, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(r.Output, "error: %v\n", err)
		return nil
	}

	output := resp.FinalText
	if r.Renderer != nil {
		if rendered, err := r.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))

	if r.OnAnswer != nil {
		if err := r.OnAnswer(ctx, resp); err != nil {
			return fmt.Errorf("saving answer: %w", err)
		}
	}
	return nil
}
