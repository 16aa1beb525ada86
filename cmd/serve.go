package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/microarena/duelcore/internal/app"
	"github.com/microarena/duelcore/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the duel engine server",
	Long: `Starts the duel wagering engine, which will:
1. Open the configured store (memory or postgres)
2. Expose the duel, bet, and account operations over HTTP
3. Stream bet and settlement events to websocket spectators
4. Publish engine events to Kafka when EVENTS_MODE=kafka`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	return application.Run()
}
