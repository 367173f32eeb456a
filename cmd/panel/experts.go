package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/panel/internal/cli"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/spf13/cobra"
)

var expertsCmd = &cobra.Command{
	Use:   "experts",
	Short: "Manage the experts on the session's panel",
}

var expertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experts in panel order",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.ListExperts(ctx, app, cmd.OutOrStdout(), asJSON)
		})
	},
}

func expertFromFlags(cmd *cobra.Command, id string) domain.Expert {
	description, _ := cmd.Flags().GetString("description")
	name, _ := cmd.Flags().GetString("name")
	avatar, _ := cmd.Flags().GetString("avatar")
	return domain.Expert{ID: id, Description: description, Name: name, Avatar: avatar}
}

var expertsAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add an expert to the end of the panel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := cli.AddExpert(ctx, app, expertFromFlags(cmd, args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added expert '%s'.\n", args[0])
			return nil
		})
	},
}

var expertsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an expert's description, name or avatar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := cli.UpdateExpert(ctx, app, expertFromFlags(cmd, args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated expert '%s'.\n", args[0])
			return nil
		})
	},
}

var expertsRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an expert from the panel",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if err := cli.RemoveExpert(ctx, app, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed expert '%s'.\n", args[0])
			return nil
		})
	},
}

var expertsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the roster snapshot to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := cli.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			if len(args) == 0 {
				return cli.ExportExperts(ctx, app, cmd.OutOrStdout(), format)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := cli.ExportExperts(ctx, app, f, format); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
	},
}

var expertsImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the roster with a snapshot (all or nothing)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatFlag, _ := cmd.Flags().GetString("format")
		format, err := cli.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
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
			n, err := cli.ImportExperts(ctx, app, in, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d experts.\n", n)
			return nil
		})
	},
}

var expertsGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the panel as a Mermaid flowchart",
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetBool("last")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.GraphExperts(ctx, app, cmd.OutOrStdout(), last)
		})
	},
}

func init() {
	rootCmd.AddCommand(expertsCmd)
	expertsCmd.AddCommand(expertsListCmd, expertsAddCmd, expertsUpdateCmd, expertsRemoveCmd,
		expertsExportCmd, expertsImportCmd, expertsGraphCmd)

	expertsListCmd.Flags().Bool("json", false, "Print as JSON")
	for _, c := range []*cobra.Command{expertsAddCmd, expertsUpdateCmd} {
		c.Flags().StringP("description", "d", "", "Persona description used as the expert's system prompt")
		c.Flags().String("name", "", "Display name")
		c.Flags().String("avatar", "", "Display avatar (emoji)")
	}
	_ = expertsAddCmd.MarkFlagRequired("description")
	expertsExportCmd.Flags().StringP("format", "f", "json", "Snapshot format: json or yaml")
	expertsImportCmd.Flags().StringP("format", "f", "json", "Snapshot format: json or yaml")
	expertsGraphCmd.Flags().Bool("last", false, "Overlay the outcome of the latest answer")
}
