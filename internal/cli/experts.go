package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/panel/internal/presentation/graph"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
)

// ListExperts prints the session roster as a table, or as JSON.
func ListExperts(ctx context.Context, app *App, out io.Writer, asJSON bool) error {
	state, err := app.Sessions.LoadOrStart(ctx, app.SessionID)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(state.Experts)
	}
	if len(state.Experts) == 0 {
		fmt.Fprintln(out, "No experts registered.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, e := range state.Experts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Name, truncate(e.Description, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// AddExpert registers a new expert in the session roster.
func AddExpert(ctx context.Context, app *App, e domain.Expert) error {
	_, err := app.Sessions.MutateRegistry(ctx, app.SessionID, func(r *registry.Registry) error {
		return r.Register(e)
	})
	return err
}

// UpdateExpert replaces the fields of an existing expert. Empty optional
// fields keep their current value.
func UpdateExpert(ctx context.Context, app *App, e domain.Expert) error {
	_, err := app.Sessions.MutateRegistry(ctx, app.SessionID, func(r *registry.Registry) error {
		current, ok := r.Get(e.ID)
		if !ok {
			return &domain.UnknownExpertError{ID: e.ID}
		}
		if e.Description == "" {
			e.Description = current.Description
		}
		if e.Name == "" {
			e.Name = current.Name
		}
		if e.Avatar == "" {
			e.Avatar = current.Avatar
		}
		return r.Update(e)
	})
	return err
}

// RemoveExpert removes an expert from the session roster.
func RemoveExpert(ctx context.Context, app *App, id string) error {
	_, err := app.Sessions.MutateRegistry(ctx, app.SessionID, func(r *registry.Registry) error {
		return r.Remove(id)
	})
	return err
}

// ExportExperts writes the roster snapshot in the given format.
func ExportExperts(ctx context.Context, app *App, out io.Writer, format string) error {
	reg, err := app.Sessions.Registry(ctx, app.SessionID)
	if err != nil {
		return err
	}
	var data []byte
	if format == "yaml" {
		data, err = reg.ExportYAML()
	} else {
		data, err = reg.ExportSnapshot()
	}
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// ImportExperts replaces the roster with the snapshot read from in.
// On any error the stored roster is left untouched.
func ImportExperts(ctx context.Context, app *App, in io.Reader, format string) (int, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot: %w", err)
	}
	state, err := app.Sessions.MutateRegistry(ctx, app.SessionID, func(r *registry.Registry) error {
		if format == "yaml" {
			return r.ImportYAML(data)
		}
		return r.ImportSnapshot(data)
	})
	if err != nil {
		return 0, err
	}
	return len(state.Experts), nil
}

// GraphExperts prints the panel as a Mermaid flowchart. With lastTurn the
// outcome of the session's latest answer is overlaid.
func GraphExperts(ctx context.Context, app *App, out io.Writer, lastTurn bool) error {
	state, err := app.Sessions.LoadOrStart(ctx, app.SessionID)
	if err != nil {
		return err
	}
	var overlay *graph.Overlay
	if lastTurn && len(state.Transcript) > 0 {
		overlay = &graph.Overlay{Opinions: state.Transcript[len(state.Transcript)-1].Opinions}
	}
	_, err = io.WriteString(out, graph.GenerateMermaid(state.Experts, overlay))
	return err
}
