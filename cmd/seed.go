package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/microarena/duelcore/internal/app"
	"github.com/microarena/duelcore/internal/ledger"
	"github.com/microarena/duelcore/pkg/config"
	"github.com/spf13/cobra"
)

// Demo roster: agent accounts spectators can field as duel participants.
var seedAgents = []struct {
	id   string
	name string
}{
	{"agent-momentum", "MomentumBot"},
	{"agent-contrarian", "ContrarianAI"},
	{"agent-sniper", "SniperAlpha"},
}

//nolint:gochecknoglobals // Cobra boilerplate
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo accounts into the configured store",
	Long: `Creates a roster of demo agent accounts plus a pair of spectator
accounts with an opening balance. Creation is idempotent: existing accounts
are left untouched, so seed can be re-run safely.`,
	RunE: runSeed,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Int64("balance", 1000, "Opening balance for seeded spectator accounts")
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	balance, _ := cmd.Flags().GetInt64("balance")

	engineStore, err := app.SetupStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("setup store: %w", err)
	}
	defer func() {
		_ = engineStore.Close()
	}()

	accountLedger, err := ledger.New(&ledger.Config{
		Store:  engineStore,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("setup ledger: %w", err)
	}

	ctx := context.Background()

	for _, agent := range seedAgents {
		_, err = accountLedger.CreateAccount(ctx, agent.id, agent.name, 0)
		if err != nil {
			return fmt.Errorf("seed agent %s: %w", agent.id, err)
		}
		fmt.Printf("agent   %-18s %s\n", agent.id, agent.name)
	}

	for i := 1; i <= 2; i++ {
		id := fmt.Sprintf("spectator-%d", i)
		account, err := accountLedger.CreateAccount(ctx, id, fmt.Sprintf("Spectator %d", i), balance)
		if err != nil {
			return fmt.Errorf("seed account %s: %w", id, err)
		}
		fmt.Printf("account %-18s balance=%d\n", account.ID, account.Balance)
	}

	return nil
}
