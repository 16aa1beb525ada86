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

// Store is the persistence surface the engine needs for duels and bets.
type Store interface {
	GetDuel(ctx context.Context, id string) (*types.Duel, error)
	PutDuel(ctx context.Context, duel *types.Duel) error
	ListDuelsByStatus(ctx context.Context, status types.DuelStatus, limit int) ([]*types.Duel, error)
	InsertBet(ctx context.Context, bet *types.Bet) error
	PutBet(ctx context.Context, bet *types.Bet) error
	ListBetsByDuel(ctx context.Context, duelID string) ([]*types.Bet, error)
}

// Ledger is the balance surface the engine needs. Only the ledger mutates
// balances and win/loss counters.
type Ledger interface {
	Debit(ctx context.Context, accountID string, amount int64, reason string) error
	Credit(ctx context.Context, accountID string, amount int64, reason string) error
	RecordResult(ctx context.Context, winnerID, loserID string) error
}

// Registry owns duel records and enforces the lifecycle state machine:
//
//	waiting -(start)-> active -(resolve)-> resolved
//	waiting|active -(cancel)-> cancelled
//
// resolved and cancelled are terminal. Resolve and Cancel write the terminal
// status before settlement runs, all inside the same per-duel critical
// section, so the bet set a settlement pass sees is closed and a retried
// pass can never credit a bet twice.
type Registry struct {
	store     Store
	ledger    Ledger
	publisher events.Publisher
	locks     *lockTable
	settler   *settler
	logger    *zap.Logger
}

// Config holds registry configuration.
type Config struct {
	Store     Store
	Ledger    Ledger
	Publisher events.Publisher
	Logger    *zap.Logger
}

// NewRegistry creates a duel registry.
func NewRegistry(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Registry{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		publisher: cfg.Publisher,
		locks:     newLockTable(),
		settler: &settler{
			store:  cfg.Store,
			ledger: cfg.Ledger,
			logger: cfg.Logger,
		},
		logger: cfg.Logger,
	}, nil
}

// Create registers a new duel in waiting status. Exactly two participants
// with distinct ids are required, and their kinds must be consistent with the
// duel type: human_vs_agent pairs one human with one agent, agent_vs_agent
// pairs two agents.
func (r *Registry) Create(ctx context.Context, duelType types.DuelType, participants []types.Participant, marketEvent string) (*types.Duel, error) {
	err := validateRoster(duelType, participants)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	duel := &types.Duel{
		ID:           uuid.New().String(),
		Status:       types.DuelStatusWaiting,
		Type:         duelType,
		Participants: append([]types.Participant(nil), participants...),
		StartTime:    now,
		MarketEvent:  marketEvent,
		CreatedAt:    now,
	}

	err = r.store.PutDuel(ctx, duel)
	if err != nil {
		return nil, fmt.Errorf("write duel: %w", err)
	}

	DuelsCreatedTotal.WithLabelValues(string(duelType)).Inc()
	r.logger.Info("duel-created",
		zap.String("duel-id", duel.ID),
		zap.String("type", string(duelType)),
		zap.String("market-event", marketEvent))

	return duel.Clone(), nil
}

func validateRoster(duelType types.DuelType, participants []types.Participant) error {
	if len(participants) != 2 {
		return fmt.Errorf("got %d participants, need 2: %w",
			len(participants), types.ErrInvalidParticipants)
	}
	if participants[0].ID == "" || participants[1].ID == "" {
		return fmt.Errorf("empty participant id: %w", types.ErrInvalidParticipants)
	}
	if participants[0].ID == participants[1].ID {
		return fmt.Errorf("duplicate participant %s: %w",
			participants[0].ID, types.ErrInvalidParticipants)
	}

	humans := 0
	for _, p := range participants {
		switch p.Kind {
		case types.ParticipantKindHuman:
			humans++
		case types.ParticipantKindAgent:
		default:
			return fmt.Errorf("unknown participant kind %q: %w",
				p.Kind, types.ErrInvalidParticipants)
		}
	}

	switch duelType {
	case types.DuelTypeHumanVsAgent:
		if humans != 1 {
			return fmt.Errorf("human_vs_agent needs one human, got %d: %w",
				humans, types.ErrInvalidParticipants)
		}
	case types.DuelTypeAgentVsAgent:
		if humans != 0 {
			return fmt.Errorf("agent_vs_agent allows no humans, got %d: %w",
				humans, types.ErrInvalidParticipants)
		}
	default:
		return fmt.Errorf("unknown duel type %q: %w", duelType, types.ErrInvalidParticipants)
	}
	return nil
}

// Start transitions a waiting duel to active and stamps the start time.
func (r *Registry) Start(ctx context.Context, duelID string) error {
	unlock := r.locks.acquire(duelID)
	defer unlock()

	duel, err := r.store.GetDuel(ctx, duelID)
	if err != nil {
		return err
	}

	if duel.Status != types.DuelStatusWaiting {
		TransitionsRejectedTotal.WithLabelValues("start").Inc()
		return fmt.Errorf("start from %s: %w", duel.Status, types.ErrIllegalTransition)
	}

	duel.Status = types.DuelStatusActive
	duel.StartTime = time.Now().UTC()

	err = r.store.PutDuel(ctx, duel)
	if err != nil {
		return fmt.Errorf("write duel: %w", err)
	}

	DuelsStartedTotal.Inc()
	r.logger.Info("duel-started", zap.String("duel-id", duelID))
	return nil
}

// Resolve transitions an active duel to resolved with the given winner and
// settles every bet on it in the same critical section. The terminal status
// is written before any payout: once the write lands the duel stops
// accepting bets, which freezes the pool for the settlement pass. A failure
// partway through settlement leaves the duel resolved with unsettled bets;
// calling Resolve again with the same winner drives the remainder, skipping
// bets that already carry the settled marker. Once nothing is left to settle,
// re-invocation is rejected with ErrIllegalTransition and zero ledger
// mutations, as is any call on a non-active duel.
func (r *Registry) Resolve(ctx context.Context, duelID, winnerID string) error {
	unlock := r.locks.acquire(duelID)
	defer unlock()

	duel, err := r.store.GetDuel(ctx, duelID)
	if err != nil {
		return err
	}

	switch {
	case duel.Status == types.DuelStatusActive:
		if !duel.HasParticipant(winnerID) {
			return fmt.Errorf("winner %s: %w", winnerID, types.ErrUnknownParticipant)
		}

		duel.Status = types.DuelStatusResolved
		duel.WinnerID = winnerID
		duel.EndTime = time.Now().UTC()

		err = r.store.PutDuel(ctx, duel)
		if err != nil {
			return fmt.Errorf("write duel: %w", err)
		}
		DuelsResolvedTotal.Inc()

		// Counters ride the status flip, which happens at most once, so a
		// settlement retry cannot bump them twice.
		err = r.ledger.RecordResult(ctx, winnerID, duel.Opponent(winnerID))
		if err != nil {
			r.logger.Warn("record-result-failed",
				zap.String("duel-id", duelID), zap.Error(err))
		}
	case duel.Status == types.DuelStatusResolved && duel.WinnerID == winnerID:
		// Retry after a partial settlement failure. Legal only while
		// unsettled bets remain.
		pending, perr := r.settler.unsettled(ctx, duelID)
		if perr != nil {
			return perr
		}
		if !pending {
			TransitionsRejectedTotal.WithLabelValues("resolve").Inc()
			return fmt.Errorf("resolve from %s: %w", duel.Status, types.ErrIllegalTransition)
		}
	default:
		TransitionsRejectedTotal.WithLabelValues("resolve").Inc()
		return fmt.Errorf("resolve from %s: %w", duel.Status, types.ErrIllegalTransition)
	}

	start := time.Now()
	outcome, err := r.settler.resolve(ctx, duel, winnerID)
	if err != nil {
		// The duel is already fenced against new bets; settled bets carry
		// their marker, so the retry drives only the remainder.
		r.logger.Error("settlement-failed",
			zap.String("duel-id", duelID),
			zap.String("winner-id", winnerID),
			zap.Error(err))
		return err
	}

	SettlementDurationSeconds.Observe(time.Since(start).Seconds())
	PayoutsDistributedTotal.Add(float64(outcome.paidOut))

	r.logger.Info("duel-resolved",
		zap.String("duel-id", duelID),
		zap.String("winner-id", winnerID),
		zap.Int64("total-pool", outcome.totalPool),
		zap.Int64("winning-pool", outcome.winningPool),
		zap.Int64("paid-out", outcome.paidOut))

	err = r.publisher.PublishDuelResolved(ctx, events.DuelResolved{
		DuelID:      duelID,
		WinnerID:    winnerID,
		TotalPool:   outcome.totalPool,
		WinningPool: outcome.winningPool,
		PaidOut:     outcome.paidOut,
	})
	if err != nil {
		r.logger.Warn("publish-duel-resolved-failed",
			zap.String("duel-id", duelID), zap.Error(err))
	}
	return nil
}

// Cancel aborts a waiting or active duel and refunds every bet its exact
// stake in the same critical section. No winner, no counter updates. As with
// Resolve, the terminal status is written before any credit; a partial
// refund failure leaves the duel cancelled with unsettled bets, and calling
// Cancel again drives the remainder.
func (r *Registry) Cancel(ctx context.Context, duelID, reason string) error {
	unlock := r.locks.acquire(duelID)
	defer unlock()

	duel, err := r.store.GetDuel(ctx, duelID)
	if err != nil {
		return err
	}

	switch duel.Status {
	case types.DuelStatusWaiting, types.DuelStatusActive:
		duel.Status = types.DuelStatusCancelled

		err = r.store.PutDuel(ctx, duel)
		if err != nil {
			return fmt.Errorf("write duel: %w", err)
		}
		DuelsCancelledTotal.Inc()
	case types.DuelStatusCancelled:
		pending, perr := r.settler.unsettled(ctx, duelID)
		if perr != nil {
			return perr
		}
		if !pending {
			TransitionsRejectedTotal.WithLabelValues("cancel").Inc()
			return fmt.Errorf("cancel from %s: %w", duel.Status, types.ErrIllegalTransition)
		}
	default:
		TransitionsRejectedTotal.WithLabelValues("cancel").Inc()
		return fmt.Errorf("cancel from %s: %w", duel.Status, types.ErrIllegalTransition)
	}

	refunded, err := r.settler.refund(ctx, duel)
	if err != nil {
		r.logger.Error("refund-failed",
			zap.String("duel-id", duelID),
			zap.String("reason", reason),
			zap.Error(err))
		return err
	}

	r.logger.Info("duel-cancelled",
		zap.String("duel-id", duelID),
		zap.String("reason", reason),
		zap.Int64("refunded", refunded))

	err = r.publisher.PublishDuelCancelled(ctx, events.DuelCancelled{
		DuelID:   duelID,
		Reason:   reason,
		Refunded: refunded,
	})
	if err != nil {
		r.logger.Warn("publish-duel-cancelled-failed",
			zap.String("duel-id", duelID), zap.Error(err))
	}
	return nil
}

// Get returns a snapshot of the duel.
func (r *Registry) Get(ctx context.Context, duelID string) (*types.Duel, error) {
	unlock := r.locks.acquire(duelID)
	defer unlock()

	return r.store.GetDuel(ctx, duelID)
}

// ListByStatus returns up to limit duels with the given status, newest first.
func (r *Registry) ListByStatus(ctx context.Context, status types.DuelStatus, limit int) ([]*types.Duel, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return r.store.ListDuelsByStatus(ctx, status, limit)
}

// UpdateExternalState stores the externally produced state blob verbatim.
// The engine never parses it. Terminal duels are frozen.
func (r *Registry) UpdateExternalState(ctx context.Context, duelID string, blob []byte) error {
	unlock := r.locks.acquire(duelID)
	defer unlock()

	duel, err := r.store.GetDuel(ctx, duelID)
	if err != nil {
		return err
	}

	if duel.Status.Terminal() {
		return fmt.Errorf("update state on %s duel: %w", duel.Status, types.ErrIllegalTransition)
	}

	duel.ExternalState = append([]byte(nil), blob...)
	err = r.store.PutDuel(ctx, duel)
	if err != nil {
		return fmt.Errorf("write duel: %w", err)
	}
	return nil
}
