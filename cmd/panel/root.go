package main

import (
	"context"
	"os"

	"github.com/aretw0/panel/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "panel",
	Short: "Panel asks a group of expert personas and merges their answers",
	Long: `Panel sends one question to every expert persona on the panel in parallel,
then asks a moderator to integrate their opinions into a single answer.
Rosters, model settings and transcripts are kept per session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("session", "s", cli.DefaultSessionID, "Session whose roster, model and transcript to use")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file, redis or sqlite (default from config)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default panel.yaml or $PANEL_CONFIG)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging of every panel event")
	rootCmd.PersistentFlags().Bool("offline", false, "Use the local echo model instead of OpenAI")
}

// withApp builds the app from the persistent flags and runs fn under a
// context cancelled by SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	flags := cmd.Flags()
	sessionID, _ := flags.GetString("session")
	store, _ := flags.GetString("store")
	configPath, _ := flags.GetString("config")
	debug, _ := flags.GetBool("debug")
	offline, _ := flags.GetBool("offline")

	app, err := cli.NewApp(cli.Options{
		ConfigPath: configPath,
		SessionID:  sessionID,
		Store:      store,
		Debug:      debug,
		Offline:    offline,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("shutdown incomplete", "err", err)
		}
	}()

	sigCtx := cli.NewSignalContext(cmd.Context())
	defer sigCtx.Cancel()
	return fn(sigCtx, app)
}
