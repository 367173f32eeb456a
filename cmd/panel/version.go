package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/panel"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of panel",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "panel version %s\n", strings.TrimSpace(panel.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
