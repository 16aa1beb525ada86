package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/microarena/duelcore/internal/store"
	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	GetAccount(ctx context.Context, id string) (*types.Account, error)
	PutAccount(ctx context.Context, account *types.Account) error
	AppendAudit(ctx context.Context, entry store.AuditEntry) error
}

// Ledger is the sole writer of account balances and win/loss counters.
// Debit and Credit are serialized per account through a keyed lock table, so
// no interleaving of concurrent calls on the same account can produce a
// negative balance or a lost update. Different accounts proceed in parallel.
// Every mutation appends one entry to the append-only audit trail.
type Ledger struct {
	store  Store
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Config holds ledger configuration.
type Config struct {
	Store  Store
	Logger *zap.Logger
}

// New creates a ledger with the given configuration.
func New(cfg *Config) (*Ledger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Ledger{
		store:  cfg.Store,
		logger: cfg.Logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockAccount acquires the per-account mutex and returns its unlock func.
func (l *Ledger) lockAccount(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Debit atomically removes amount from the account balance. It fails closed:
// when the balance cannot cover the amount, nothing is deducted and
// types.ErrInsufficientFunds is returned.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount int64, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("debit of %d: %w", amount, types.ErrInvalidAmount)
	}

	unlock := l.lockAccount(accountID)
	defer unlock()

	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if account.Balance < amount {
		RejectionsTotal.WithLabelValues("insufficient_funds").Inc()
		return fmt.Errorf("account %s balance %d < %d: %w",
			accountID, account.Balance, amount, types.ErrInsufficientFunds)
	}

	account.Balance -= amount
	err = l.store.PutAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}

	err = l.appendAudit(ctx, accountID, -amount, reason)
	if err != nil {
		return err
	}

	DebitsTotal.Inc()
	l.logger.Debug("account-debited",
		zap.String("account-id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance),
		zap.String("reason", reason))

	return nil
}

// Credit atomically adds amount to the account balance.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount int64, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("credit of %d: %w", amount, types.ErrInvalidAmount)
	}

	unlock := l.lockAccount(accountID)
	defer unlock()

	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	account.Balance += amount
	err = l.store.PutAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}

	err = l.appendAudit(ctx, accountID, amount, reason)
	if err != nil {
		return err
	}

	CreditsTotal.Inc()
	l.logger.Debug("account-credited",
		zap.String("account-id", accountID),
		zap.Int64("amount", amount),
		zap.Int64("balance", account.Balance),
		zap.String("reason", reason))

	return nil
}

func (l *Ledger) appendAudit(ctx context.Context, accountID string, delta int64, reason string) error {
	err := l.store.AppendAudit(ctx, store.AuditEntry{
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		At:        time.Now().UTC(),
	})
	if err != nil {
		// Balance is already written; a missing audit row is an integrity
		// problem for reconciliation, not for the caller's funds.
		l.logger.Error("audit-append-failed",
			zap.String("account-id", accountID),
			zap.Int64("delta", delta),
			zap.Error(err))
		return fmt.Errorf("append audit: %w", err)
	}
	AuditEntriesTotal.Inc()
	return nil
}

// CreateAccount is the identity-binding entry point for external
// collaborators: it returns the existing account for id, or creates one with
// the opening balance. Creation is idempotent per id.
func (l *Ledger) CreateAccount(ctx context.Context, id, displayName string, openingBalance int64) (*types.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}
	if openingBalance < 0 {
		return nil, fmt.Errorf("opening balance of %d: %w", openingBalance, types.ErrInvalidAmount)
	}

	unlock := l.lockAccount(id)
	defer unlock()

	existing, err := l.store.GetAccount(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		// Only a confirmed miss may create; a read failure must not reset
		// an existing account to the opening balance.
		return nil, fmt.Errorf("read account: %w", err)
	}

	account := &types.Account{
		ID:          id,
		DisplayName: displayName,
		Balance:     openingBalance,
		CreatedAt:   time.Now().UTC(),
	}
	err = l.store.PutAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("write account: %w", err)
	}

	if openingBalance > 0 {
		err = l.appendAudit(ctx, id, openingBalance, "opening-balance")
		if err != nil {
			return nil, err
		}
	}

	l.logger.Info("account-created",
		zap.String("account-id", id),
		zap.Int64("opening-balance", openingBalance))

	return account.Clone(), nil
}

// GetAccount returns a snapshot of the account.
func (l *Ledger) GetAccount(ctx context.Context, id string) (*types.Account, error) {
	return l.store.GetAccount(ctx, id)
}

// RecordResult increments the winner's win counter and the loser's loss
// counter. Participants without a ledger account (e.g. agents registered
// only as roster entries) are skipped with a warning.
func (l *Ledger) RecordResult(ctx context.Context, winnerID, loserID string) error {
	err := l.bumpCounter(ctx, winnerID, true)
	if err != nil {
		return err
	}
	return l.bumpCounter(ctx, loserID, false)
}

func (l *Ledger) bumpCounter(ctx context.Context, accountID string, win bool) error {
	unlock := l.lockAccount(accountID)
	defer unlock()

	account, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		l.logger.Warn("result-counter-skipped",
			zap.String("account-id", accountID),
			zap.Error(err))
		return nil
	}

	if win {
		account.Wins++
	} else {
		account.Losses++
	}

	err = l.store.PutAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}
