package store

import (
	"context"
	"time"

	"github.com/microarena/duelcore/pkg/types"
)

// AuditEntry is one row of the append-only balance audit trail. Every ledger
// mutation appends exactly one entry for later reconciliation.
type AuditEntry struct {
	AccountID string    `json:"account_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// AccountStore persists accounts. Get returns types.ErrNotFound for unknown
// ids; implementations hand out copies, never internal records.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*types.Account, error)
	PutAccount(ctx context.Context, account *types.Account) error
}

// DuelStore persists duels.
type DuelStore interface {
	GetDuel(ctx context.Context, id string) (*types.Duel, error)
	PutDuel(ctx context.Context, duel *types.Duel) error

	// ListDuelsByStatus returns up to limit duels with the given status,
	// newest first.
	ListDuelsByStatus(ctx context.Context, status types.DuelStatus, limit int) ([]*types.Duel, error)
}

// BetStore persists bets. InsertBet rejects duplicate ids; PutBet overwrites
// an existing record (the single payout write at settlement).
type BetStore interface {
	InsertBet(ctx context.Context, bet *types.Bet) error
	PutBet(ctx context.Context, bet *types.Bet) error
	ListBetsByDuel(ctx context.Context, duelID string) ([]*types.Bet, error)
}

// AuditStore records the append-only audit trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

// Store is the full persistence surface injected into the engine. The engine
// serializes access per account and per duel with its own keyed locks, so
// implementations only need individually-consistent operations.
type Store interface {
	AccountStore
	DuelStore
	BetStore
	AuditStore

	// Close releases the underlying resources.
	Close() error
}
