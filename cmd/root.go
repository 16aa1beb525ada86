package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "duelcore",
	Short: "Competitive-wagering duel engine",
	Long: `duelcore runs the duel lifecycle and wagering ledger engine:
participants are paired into time-bounded duels tied to a market event,
spectators place escrowed bets on the outcome, and settlement distributes
the losing pool among winning bettors exactly once.

The serve command exposes the engine over HTTP with metrics, health probes,
and a websocket event stream.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
