package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/settings"
)

// ShowModel prints the session's model parameters.
func ShowModel(ctx context.Context, app *App, out io.Writer) error {
	state, err := app.Sessions.LoadOrStart(ctx, app.SessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "model:       %s\ntemperature: %g\n", state.Model.ModelName, state.Model.Temperature)
	return nil
}

// SetModel updates the session's model parameters. Nil fields keep their
// current value; the result must be a supported model and temperature.
func SetModel(ctx context.Context, app *App, name *string, temperature *float64) (domain.ModelConfig, error) {
	state, err := app.Sessions.MutateModel(ctx, app.SessionID, func(s *settings.Store) error {
		cfg := s.Current()
		if name != nil {
			cfg.ModelName = *name
		}
		if temperature != nil {
			cfg.Temperature = *temperature
		}
		return s.Set(cfg)
	})
	if err != nil {
		return domain.ModelConfig{}, err
	}
	return state.Model, nil
}

// ExportModel writes the model settings document.
func ExportModel(ctx context.Context, app *App, out io.Writer) error {
	state, err := app.Sessions.LoadOrStart(ctx, app.SessionID)
	if err != nil {
		return err
	}
	data, err := settings.Encode(state.Model)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// ImportModel replaces the model settings with the document read from in.
func ImportModel(ctx context.Context, app *App, in io.Reader) (domain.ModelConfig, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return domain.ModelConfig{}, fmt.Errorf("failed to read model settings: %w", err)
	}
	state, err := app.Sessions.MutateModel(ctx, app.SessionID, func(s *settings.Store) error {
		return s.Import(data)
	})
	if err != nil {
		return domain.ModelConfig{}, err
	}
	return state.Model, nil
}
