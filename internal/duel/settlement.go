package duel

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// settler computes and credits payouts. It is invoked only from the
// registry's Resolve and Cancel transitions, under the duel's lock and after
// the duel has been flipped to its terminal status, so the bet set it sees
// is closed: no placement can land between the pool computation and the
// credits, and a retry pass recomputes identical pools.
type settler struct {
	store  Store
	ledger Ledger
	logger *zap.Logger
}

// settlementOutcome summarizes one resolve pass.
type settlementOutcome struct {
	totalPool   int64
	winningPool int64
	paidOut     int64
}

// resolve settles every bet on the duel for the given winner using the
// pool-based payout: each winning bet receives its stake back plus a
// floor-rounded proportional share of the losing pool. Rounding remainders
// stay with the house, so paidOut never exceeds totalPool. When nobody bet
// on the winner the losing pool is retained by the house and no payouts are
// distributed.
//
// Per bet, the settled marker is written before the credit. A marker write
// failure leaves the bet unsettled and uncredited, so the next pass drives
// it again; a credit failure after the marker is an integrity violation to
// reconcile from the audit trail, and no retry will ever credit that bet
// twice.
func (s *settler) resolve(ctx context.Context, duel *types.Duel, winnerID string) (*settlementOutcome, error) {
	bets, err := s.store.ListBetsByDuel(ctx, duel.ID)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}

	outcome := &settlementOutcome{}
	for _, bet := range bets {
		outcome.totalPool += bet.Amount
		if bet.Prediction == winnerID {
			outcome.winningPool += bet.Amount
		}
	}
	losingPool := outcome.totalPool - outcome.winningPool

	for _, bet := range bets {
		if bet.Settled {
			continue
		}

		var payout int64
		if bet.Prediction == winnerID && outcome.winningPool > 0 {
			payout = poolPayout(bet.Amount, outcome.winningPool, losingPool)
		}

		bet.Payout = payout
		bet.Settled = true
		err = s.store.PutBet(ctx, bet)
		if err != nil {
			return nil, fmt.Errorf("mark bet %s settled: %w", bet.ID, err)
		}

		if payout > 0 {
			err = s.ledger.Credit(ctx, bet.BettorAccountID, payout,
				fmt.Sprintf("payout:duel=%s:bet=%s", duel.ID, bet.ID))
			if err != nil {
				return nil, fmt.Errorf("credit payout for bet %s: %w: %v",
					bet.ID, types.ErrIntegrity, err)
			}
		}
		outcome.paidOut += payout
	}

	return outcome, nil
}

// unsettled reports whether any bet on the duel still lacks its settled
// marker.
func (s *settler) unsettled(ctx context.Context, duelID string) (bool, error) {
	bets, err := s.store.ListBetsByDuel(ctx, duelID)
	if err != nil {
		return false, fmt.Errorf("list bets: %w", err)
	}
	for _, bet := range bets {
		if !bet.Settled {
			return true, nil
		}
	}
	return false, nil
}

// poolPayout computes amount + amount*losingPool/winningPool with the
// division floored. The whole computation stays in big.Int so neither the
// intermediate product nor the final sum can wrap; a result past the int64
// range is clamped.
func poolPayout(amount, winningPool, losingPool int64) int64 {
	payout := new(big.Int).Mul(big.NewInt(amount), big.NewInt(losingPool))
	payout.Quo(payout, big.NewInt(winningPool))
	payout.Add(payout, big.NewInt(amount))
	if !payout.IsInt64() {
		return math.MaxInt64
	}
	return payout.Int64()
}

// refund returns every unsettled bet its exact stake and marks it settled
// with payout = amount. No pool math, no counter updates. Marker before
// credit, same as resolve, so a retried cancel never refunds twice.
func (s *settler) refund(ctx context.Context, duel *types.Duel) (int64, error) {
	bets, err := s.store.ListBetsByDuel(ctx, duel.ID)
	if err != nil {
		return 0, fmt.Errorf("list bets: %w", err)
	}

	var refunded int64
	for _, bet := range bets {
		if bet.Settled {
			continue
		}

		bet.Payout = bet.Amount
		bet.Settled = true
		err = s.store.PutBet(ctx, bet)
		if err != nil {
			return refunded, fmt.Errorf("mark bet %s settled: %w", bet.ID, err)
		}

		err = s.ledger.Credit(ctx, bet.BettorAccountID, bet.Amount,
			fmt.Sprintf("refund:duel=%s:bet=%s", duel.ID, bet.ID))
		if err != nil {
			return refunded, fmt.Errorf("refund bet %s: %w: %v",
				bet.ID, types.ErrIntegrity, err)
		}
		refunded += bet.Amount
	}

	if len(bets) > 0 {
		s.logger.Debug("bets-refunded",
			zap.String("duel-id", duel.ID),
			zap.Int("bets", len(bets)),
			zap.Int64("refunded", refunded),
			zap.Duration("since-start", time.Since(duel.StartTime)))
	}
	return refunded, nil
}
