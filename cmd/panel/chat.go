package main

import (
	"context"

	"github.com/aretw0/panel/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation with the panel",
	Long:  `Reads one question per line until EOF, "exit" or "quit". Every answer is appended to the session transcript.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cli.App) error {
			return cli.RunChat(ctx, app, cmd.InOrStdin(), cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
