package main

import (
	"github.com/aretw0/daydream/internal/cli"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Daydream in the terminal",
	Long: `Starts (or resumes) a daydream in the terminal.

Type a number to pick a choice, or any text to follow your own thought.
Commands: b (back), c (complete), r (reset), s (share), q (quit).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		headless, _ := cmd.Flags().GetBool("headless")
		fresh, _ := cmd.Flags().GetBool("fresh")

		return cli.RunPlay(cfg, cli.PlayOptions{
			SessionID: sessionID,
			Headless:  headless,
			Fresh:     fresh,
			Input:     cmd.InOrStdin(),
			Output:    cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringP("session", "s", "", "Session ID to resume (default daydreamSession)")
	playCmd.Flags().Bool("headless", false, "Plain output without banner or status messages")
	playCmd.Flags().Bool("fresh", false, "Discard the saved session and start over")
}
