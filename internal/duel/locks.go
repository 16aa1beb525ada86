package duel

import "sync"

// lockTable hands out one mutex per duel id. Holding a duel's mutex
// serializes every status transition, bet insertion, and settlement pass for
// that duel, which is what linearizes placeBet against the flip to a
// non-accepting status. Distinct duels never contend.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for id and returns its unlock func.
func (t *lockTable) acquire(id string) func() {
	t.mu.Lock()
	m, ok := t.locks[id]
	if !ok {
		m = &sync.Mutex{}
		t.locks[id] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}
