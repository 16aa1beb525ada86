package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap/zaptest"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	return NewMemory(zaptest.NewLogger(t))
}

func TestMemory_Accounts(t *testing.T) {
	t.Parallel()

	mem := newTestMemory(t)
	ctx := context.Background()

	_, err := mem.GetAccount(ctx, "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	account := &types.Account{ID: "a1", DisplayName: "Alice", Balance: 1000}
	if err := mem.PutAccount(ctx, account); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := mem.GetAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 1000 || got.DisplayName != "Alice" {
		t.Errorf("account = %+v", got)
	}

	// The store hands out copies, mutating a result must not leak back.
	got.Balance = 0
	again, err := mem.GetAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Balance != 1000 {
		t.Errorf("balance = %d, caller mutation leaked into store", again.Balance)
	}
}

func TestMemory_Duels(t *testing.T) {
	t.Parallel()

	mem := newTestMemory(t)
	ctx := context.Background()

	_, err := mem.GetDuel(ctx, "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	duel := &types.Duel{
		ID:     "d1",
		Status: types.DuelStatusWaiting,
		Type:   types.DuelTypeAgentVsAgent,
		Participants: []types.Participant{
			{ID: "a1", Kind: types.ParticipantKindAgent},
			{ID: "a2", Kind: types.ParticipantKindAgent},
		},
		ExternalState: []byte(`{"height":1}`),
		CreatedAt:     time.Now().UTC(),
	}
	if err := mem.PutDuel(ctx, duel); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := mem.GetDuel(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Deep copy: mutating the returned slices must not touch the stored
	// record.
	got.Participants[0].ID = "mutated"
	got.ExternalState[0] = 'X'

	again, err := mem.GetDuel(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Participants[0].ID != "a1" {
		t.Errorf("participant = %s, caller mutation leaked", again.Participants[0].ID)
	}
	if again.ExternalState[0] != '{' {
		t.Errorf("external state mutated: %q", again.ExternalState)
	}
}

func TestMemory_ListDuelsByStatus(t *testing.T) {
	t.Parallel()

	mem := newTestMemory(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		err := mem.PutDuel(ctx, &types.Duel{
			ID:        id,
			Status:    types.DuelStatusWaiting,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	err := mem.PutDuel(ctx, &types.Duel{
		ID:        "done",
		Status:    types.DuelStatusResolved,
		CreatedAt: base,
	})
	if err != nil {
		t.Fatalf("put done: %v", err)
	}

	waiting, err := mem.ListDuelsByStatus(ctx, types.DuelStatusWaiting, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(waiting) != 3 {
		t.Fatalf("waiting = %d, want 3", len(waiting))
	}
	// newest first
	if waiting[0].ID != "new" || waiting[2].ID != "old" {
		t.Errorf("order = [%s %s %s], want newest first",
			waiting[0].ID, waiting[1].ID, waiting[2].ID)
	}

	limited, err := mem.ListDuelsByStatus(ctx, types.DuelStatusWaiting, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "new" {
		t.Errorf("limited = %v, want 2 newest", limited)
	}
}

func TestMemory_Bets(t *testing.T) {
	t.Parallel()

	mem := newTestMemory(t)
	ctx := context.Background()

	bet := &types.Bet{ID: "b1", DuelID: "d1", BettorAccountID: "a1", Amount: 50, Prediction: "p1"}
	if err := mem.InsertBet(ctx, bet); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mem.InsertBet(ctx, bet); err == nil {
		t.Error("expected duplicate insert to fail")
	}

	err := mem.PutBet(ctx, &types.Bet{ID: "ghost"})
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("put unknown bet: error = %v, want ErrNotFound", err)
	}

	bet.Settled = true
	bet.Payout = 75
	if err := mem.PutBet(ctx, bet); err != nil {
		t.Fatalf("put: %v", err)
	}

	second := &types.Bet{ID: "b2", DuelID: "d1", BettorAccountID: "a2", Amount: 25, Prediction: "p2"}
	if err := mem.InsertBet(ctx, second); err != nil {
		t.Fatalf("insert: %v", err)
	}

	bets, err := mem.ListBetsByDuel(ctx, "d1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bets) != 2 {
		t.Fatalf("bets = %d, want 2", len(bets))
	}
	// insertion order preserved
	if bets[0].ID != "b1" || bets[1].ID != "b2" {
		t.Errorf("order = [%s %s], want [b1 b2]", bets[0].ID, bets[1].ID)
	}
	if !bets[0].Settled || bets[0].Payout != 75 {
		t.Errorf("b1 = %+v, want settled with payout 75", bets[0])
	}

	empty, err := mem.ListBetsByDuel(ctx, "other")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("bets for unknown duel = %d, want 0", len(empty))
	}
}

func TestMemory_AuditTrail(t *testing.T) {
	t.Parallel()

	mem := newTestMemory(t)
	ctx := context.Background()

	entries := []AuditEntry{
		{AccountID: "a1", Delta: 1000, Reason: "opening-balance", At: time.Now().UTC()},
		{AccountID: "a1", Delta: -100, Reason: "bet:b1", At: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := mem.AppendAudit(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	trail := mem.AuditTrail()
	if len(trail) != 2 {
		t.Fatalf("trail = %d, want 2", len(trail))
	}
	if trail[0].Reason != "opening-balance" || trail[1].Delta != -100 {
		t.Errorf("trail = %+v", trail)
	}

	if err := mem.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
