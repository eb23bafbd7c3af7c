package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/daydream"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Daydream",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Daydream v%s\n", strings.TrimSpace(daydream.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
