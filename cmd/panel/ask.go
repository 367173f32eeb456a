package main

import (
	"context"
	"strings"

	"github.com/aretw0/panel/internal/cli"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the panel one question",
	Long: `Sends the question to every expert in parallel, prints each opinion as it
arrives and then the moderator's synthesis. The turn is saved to the session.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		question := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.RunAsk(ctx, app, question, cli.AskOptions{
				JSON: asJSON,
				Out:  cmd.OutOrStdout(),
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().Bool("json", false, "Print the full response (answer and opinions) as JSON")
}
