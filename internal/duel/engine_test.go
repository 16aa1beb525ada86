package duel

import (
	"context"
	"testing"

	"github.com/microarena/duelcore/internal/events"
	"github.com/microarena/duelcore/internal/ledger"
	"github.com/microarena/duelcore/internal/store"
	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap/zaptest"
)

// testEngine bundles a fully wired engine on the memory store.
type testEngine struct {
	store    *store.Memory
	ledger   *ledger.Ledger
	registry *Registry
	book     *Book
}

func newTestEngine(t *testing.T, allowWaitingBets bool) *testEngine {
	t.Helper()

	logger := zaptest.NewLogger(t)
	mem := store.NewMemory(logger)

	l, err := ledger.New(&ledger.Config{Store: mem, Logger: logger})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	publisher := events.NewConsolePublisher(logger)

	registry, err := NewRegistry(&Config{
		Store:     mem,
		Ledger:    l,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	book, err := NewBook(&BookConfig{
		Store:            mem,
		Ledger:           l,
		Registry:         registry,
		Publisher:        publisher,
		Logger:           logger,
		AllowWaitingBets: allowWaitingBets,
	})
	if err != nil {
		t.Fatalf("new book: %v", err)
	}

	return &testEngine{store: mem, ledger: l, registry: registry, book: book}
}

func testRoster() []types.Participant {
	return []types.Participant{
		{ID: "p1", Kind: types.ParticipantKindHuman, DisplayName: "Alice"},
		{ID: "p2", Kind: types.ParticipantKindAgent, DisplayName: "MomentumBot"},
	}
}

// mustCreateDuel creates a human_vs_agent duel with participants p1 and p2.
func (e *testEngine) mustCreateDuel(t *testing.T) *types.Duel {
	t.Helper()

	duel, err := e.registry.Create(context.Background(),
		types.DuelTypeHumanVsAgent, testRoster(), "BTC > 65000")
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}
	return duel
}

// mustAccount creates an account with the given balance.
func (e *testEngine) mustAccount(t *testing.T, id string, balance int64) {
	t.Helper()

	_, err := e.ledger.CreateAccount(context.Background(), id, id, balance)
	if err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
}

func (e *testEngine) balance(t *testing.T, id string) int64 {
	t.Helper()

	account, err := e.ledger.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return account.Balance
}
