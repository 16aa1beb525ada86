package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap"
)

// Memory is the in-process store, the default STORE_MODE. Plain maps guarded
// by a single RWMutex: correctness under concurrency comes from the engine's
// keyed locks, the store only has to keep each operation consistent and hand
// out deep copies.
type Memory struct {
	logger *zap.Logger

	mu       sync.RWMutex
	accounts map[string]*types.Account
	duels    map[string]*types.Duel
	bets     map[string]*types.Bet
	byDuel   map[string][]string // duelID -> bet ids, insertion order
	audit    []AuditEntry
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *zap.Logger) *Memory {
	logger.Info("memory-store-initialized")
	return &Memory{
		logger:   logger,
		accounts: make(map[string]*types.Account),
		duels:    make(map[string]*types.Duel),
		bets:     make(map[string]*types.Bet),
		byDuel:   make(map[string][]string),
	}
}

// GetAccount returns a copy of the account or types.ErrNotFound.
func (m *Memory) GetAccount(ctx context.Context, id string) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, types.ErrNotFound)
	}
	return account.Clone(), nil
}

// PutAccount inserts or overwrites an account record.
func (m *Memory) PutAccount(ctx context.Context, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.ID] = account.Clone()
	return nil
}

// GetDuel returns a copy of the duel or types.ErrNotFound.
func (m *Memory) GetDuel(ctx context.Context, id string) (*types.Duel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duel, ok := m.duels[id]
	if !ok {
		return nil, fmt.Errorf("duel %s: %w", id, types.ErrNotFound)
	}
	return duel.Clone(), nil
}

// PutDuel inserts or overwrites a duel record.
func (m *Memory) PutDuel(ctx context.Context, duel *types.Duel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.duels[duel.ID] = duel.Clone()
	return nil
}

// ListDuelsByStatus returns up to limit duels with the given status, newest
// first by creation time.
func (m *Memory) ListDuelsByStatus(ctx context.Context, status types.DuelStatus, limit int) ([]*types.Duel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]*types.Duel, 0)
	for _, duel := range m.duels {
		if duel.Status == status {
			matches = append(matches, duel.Clone())
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// InsertBet records a new bet; duplicate ids are rejected.
func (m *Memory) InsertBet(ctx context.Context, bet *types.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bets[bet.ID]; exists {
		return fmt.Errorf("bet %s already exists", bet.ID)
	}
	m.bets[bet.ID] = bet.Clone()
	m.byDuel[bet.DuelID] = append(m.byDuel[bet.DuelID], bet.ID)
	return nil
}

// PutBet overwrites an existing bet record (the settlement payout write).
func (m *Memory) PutBet(ctx context.Context, bet *types.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bets[bet.ID]; !exists {
		return fmt.Errorf("bet %s: %w", bet.ID, types.ErrNotFound)
	}
	m.bets[bet.ID] = bet.Clone()
	return nil
}

// ListBetsByDuel returns copies of all bets for the duel in insertion order.
func (m *Memory) ListBetsByDuel(ctx context.Context, duelID string) ([]*types.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byDuel[duelID]
	bets := make([]*types.Bet, 0, len(ids))
	for _, id := range ids {
		bets = append(bets, m.bets[id].Clone())
	}
	return bets, nil
}

// AppendAudit appends one audit trail entry.
func (m *Memory) AppendAudit(ctx context.Context, entry AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit = append(m.audit, entry)
	return nil
}

// AuditTrail returns a copy of the audit trail, oldest first. Used by
// reconciliation tooling and tests.
func (m *Memory) AuditTrail() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]AuditEntry(nil), m.audit...)
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	m.logger.Info("closing-memory-store")
	return nil
}
