package duel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microarena/duelcore/internal/events"
	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// Book records bets against duels. It is the sole writer of bet records.
// PlaceBet runs entirely under the duel's lock from the registry's shared
// lock table, so a bet is either fully recorded before any settlement pass
// begins or rejected once the duel has left an accepting status; there is no
// in-flight state across that boundary.
type Book struct {
	store        Store
	ledger       Ledger
	registry     *Registry
	publisher    events.Publisher
	allowWaiting bool
	logger       *zap.Logger
}

// BookConfig holds wager book configuration.
type BookConfig struct {
	Store     Store
	Ledger    Ledger
	Registry  *Registry
	Publisher events.Publisher
	Logger    *zap.Logger

	// AllowWaitingBets also accepts bets on duels still in waiting status
	// (pre-match wagering). Off by default.
	AllowWaitingBets bool
}

// NewBook creates a wager book sharing the registry's per-duel locks.
func NewBook(cfg *BookConfig) (*Book, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Book{
		store:        cfg.Store,
		ledger:       cfg.Ledger,
		registry:     cfg.Registry,
		publisher:    cfg.Publisher,
		allowWaiting: cfg.AllowWaitingBets,
		logger:       cfg.Logger,
	}, nil
}

func (b *Book) accepting(status types.DuelStatus) bool {
	if status == types.DuelStatusActive {
		return true
	}
	return b.allowWaiting && status == types.DuelStatusWaiting
}

// PlaceBet validates, reserves, and records a wager as one unit of work:
// the stake is debited from the bettor and the bet inserted while holding the
// duel's lock. If the insert fails after the debit, the debit is compensated
// with a credit so funds are never held without a corresponding bet.
func (b *Book) PlaceBet(ctx context.Context, duelID, bettorAccountID string, amount int64, prediction string) (*types.Bet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("bet of %d: %w", amount, types.ErrInvalidAmount)
	}

	unlock := b.registry.locks.acquire(duelID)
	defer unlock()

	duel, err := b.store.GetDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}

	if !b.accepting(duel.Status) {
		BetsRejectedTotal.WithLabelValues("not_accepting").Inc()
		return nil, fmt.Errorf("duel %s is %s: %w",
			duelID, duel.Status, types.ErrDuelNotAcceptingBets)
	}
	if !duel.HasParticipant(prediction) {
		BetsRejectedTotal.WithLabelValues("unknown_participant").Inc()
		return nil, fmt.Errorf("prediction %s: %w", prediction, types.ErrUnknownParticipant)
	}

	bet := &types.Bet{
		ID:              uuid.New().String(),
		DuelID:          duelID,
		BettorAccountID: bettorAccountID,
		Amount:          amount,
		Prediction:      prediction,
		PlacedAt:        time.Now().UTC(),
	}

	err = b.ledger.Debit(ctx, bettorAccountID, amount, "bet:"+bet.ID)
	if err != nil {
		BetsRejectedTotal.WithLabelValues("debit_failed").Inc()
		return nil, err
	}

	err = b.store.InsertBet(ctx, bet)
	if err != nil {
		// Roll the reservation back; the bettor must never stay debited
		// without a recorded bet.
		cerr := b.ledger.Credit(ctx, bettorAccountID, amount, "bet-rollback:"+bet.ID)
		if cerr != nil {
			b.logger.Error("bet-rollback-failed",
				zap.String("bet-id", bet.ID),
				zap.String("bettor", bettorAccountID),
				zap.Int64("amount", amount),
				zap.Error(cerr))
			return nil, fmt.Errorf("record bet and rollback both failed: %w: %v",
				types.ErrIntegrity, err)
		}
		return nil, fmt.Errorf("record bet: %w", err)
	}

	BetsPlacedTotal.Inc()
	BetAmount.Observe(float64(amount))
	b.logger.Info("bet-placed",
		zap.String("bet-id", bet.ID),
		zap.String("duel-id", duelID),
		zap.String("bettor", bettorAccountID),
		zap.Int64("amount", amount),
		zap.String("prediction", prediction))

	err = b.publisher.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:           bet.ID,
		DuelID:          duelID,
		BettorAccountID: bettorAccountID,
		Amount:          amount,
		Prediction:      prediction,
	})
	if err != nil {
		b.logger.Warn("publish-bet-placed-failed",
			zap.String("bet-id", bet.ID), zap.Error(err))
	}

	return bet.Clone(), nil
}

// ListBets returns a consistent snapshot of all bets on the duel, taken
// under the duel's lock so no concurrent placement is half-visible.
func (b *Book) ListBets(ctx context.Context, duelID string) ([]*types.Bet, error) {
	unlock := b.registry.locks.acquire(duelID)
	defer unlock()

	_, err := b.store.GetDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	return b.store.ListBetsByDuel(ctx, duelID)
}
