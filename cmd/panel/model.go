package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/panel/internal/cli"
	"github.com/spf13/cobra"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show or change the session's model parameters",
}

var modelShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current model and temperature",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.ShowModel(ctx, app, cmd.OutOrStdout())
		})
	},
}

var modelSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the model and/or temperature",
	RunE: func(cmd *cobra.Command, args []string) error {
		var name *string
		var temperature *float64
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			name = &v
		}
		if cmd.Flags().Changed("temperature") {
			v, _ := cmd.Flags().GetFloat64("temperature")
			temperature = &v
		}
		if name == nil && temperature == nil {
			return fmt.Errorf("nothing to change: pass --name and/or --temperature")
		}
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			cfg, err := cli.SetModel(ctx, app, name, temperature)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model set to %s.\n", cfg)
			return nil
		})
	},
}

var modelExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the model settings document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.ExportModel(ctx, app, cmd.OutOrStdout())
		})
	},
}

var modelImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the model settings from a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			cfg, err := cli.ImportModel(ctx, app, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model set to %s.\n", cfg)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelShowCmd, modelSetCmd, modelExportCmd, modelImportCmd)

	modelSetCmd.Flags().String("name", "", "Model name (gpt-4o-mini or gpt-4o)")
	modelSetCmd.Flags().Float64("temperature", 0, "Sampling temperature (0 to 2)")
}
