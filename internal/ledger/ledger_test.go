package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/microarena/duelcore/internal/store"
	"github.com/microarena/duelcore/pkg/types"
	"go.uber.org/zap/zaptest"
)

func newTestLedger(t *testing.T) (*Ledger, *store.Memory) {
	t.Helper()

	mem := store.NewMemory(zaptest.NewLogger(t))
	l, err := New(&Config{Store: mem, Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return l, mem
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	mem := store.NewMemory(logger)

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid-config",
			config:  &Config{Store: mem, Logger: logger},
			wantErr: false,
		},
		{
			name:    "nil-config",
			config:  nil,
			wantErr: true,
		},
		{
			name:    "nil-store",
			config:  &Config{Logger: logger},
			wantErr: true,
		},
		{
			name:    "nil-logger",
			config:  &Config{Store: mem},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	account, err := l.CreateAccount(ctx, "0xabc", "Alice", 1000)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.Balance != 1000 {
		t.Errorf("balance = %d, want 1000", account.Balance)
	}

	// Second create for the same id returns the existing account untouched.
	err = l.Debit(ctx, "0xabc", 400, "test")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	again, err := l.CreateAccount(ctx, "0xabc", "Alice", 1000)
	if err != nil {
		t.Fatalf("re-create account: %v", err)
	}
	if again.Balance != 600 {
		t.Errorf("balance after re-create = %d, want 600", again.Balance)
	}
}

// getFailStore makes account reads fail on demand.
type getFailStore struct {
	*store.Memory
	failing bool
}

func (s *getFailStore) GetAccount(ctx context.Context, id string) (*types.Account, error) {
	if s.failing {
		return nil, fmt.Errorf("connection reset")
	}
	return s.Memory.GetAccount(ctx, id)
}

func TestCreateAccount_ReadFailureDoesNotReset(t *testing.T) {
	t.Parallel()

	failing := &getFailStore{Memory: store.NewMemory(zaptest.NewLogger(t))}
	l, err := New(&Config{Store: failing, Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ctx := context.Background()

	if _, err = l.CreateAccount(ctx, "0xabc", "Alice", 1000); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err = l.Debit(ctx, "0xabc", 400, "test"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	// A read failure is not a miss: create must refuse rather than write a
	// fresh account over the existing balance.
	failing.failing = true
	_, err = l.CreateAccount(ctx, "0xabc", "Alice", 1000)
	if err == nil {
		t.Fatal("create with failing reads succeeded, want error")
	}

	failing.failing = false
	account, err := l.GetAccount(ctx, "0xabc")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Balance != 600 {
		t.Errorf("balance after failed create = %d, want 600", account.Balance)
	}
}

func TestCreateAccount_Invalid(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "", "Nobody", 100)
	if err == nil {
		t.Error("expected error for empty id")
	}

	_, err = l.CreateAccount(ctx, "0xneg", "Neg", -1)
	if !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}
}

func TestDebit(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "0xabc", "Alice", 500)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	tests := []struct {
		name    string
		account string
		amount  int64
		wantErr error
	}{
		{"success", "0xabc", 200, nil},
		{"zero-amount", "0xabc", 0, types.ErrInvalidAmount},
		{"negative-amount", "0xabc", -5, types.ErrInvalidAmount},
		{"unknown-account", "0xghost", 10, types.ErrNotFound},
		{"insufficient-funds", "0xabc", 10_000, types.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Debit(ctx, tt.account, tt.amount, "test")
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("debit: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed debits must not change the balance: one successful 200 debit.
	account, err := l.GetAccount(ctx, "0xabc")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Balance != 300 {
		t.Errorf("balance = %d, want 300", account.Balance)
	}
}

func TestCredit(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "0xabc", "Alice", 0)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	err = l.Credit(ctx, "0xabc", 250, "test")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	err = l.Credit(ctx, "0xabc", 0, "test")
	if !errors.Is(err, types.ErrInvalidAmount) {
		t.Errorf("error = %v, want ErrInvalidAmount", err)
	}

	err = l.Credit(ctx, "0xghost", 10, "test")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	account, _ := l.GetAccount(ctx, "0xabc")
	if account.Balance != 250 {
		t.Errorf("balance = %d, want 250", account.Balance)
	}
}

// TestDebit_Concurrent verifies the core escrow property: N concurrent debits
// of A against balance B succeed exactly floor(B/A) times and the balance
// never goes negative.
func TestDebit_Concurrent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	const (
		balance = 1000
		amount  = 30
		workers = 50 // 50*30 > 1000
	)

	_, err := l.CreateAccount(ctx, "0xabc", "Alice", balance)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, insufficient := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Debit(ctx, "0xabc", amount, "race")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, types.ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	wantSuccesses := balance / amount // 33
	if successes != wantSuccesses {
		t.Errorf("successes = %d, want %d", successes, wantSuccesses)
	}
	if insufficient != workers-wantSuccesses {
		t.Errorf("insufficient = %d, want %d", insufficient, workers-wantSuccesses)
	}

	account, _ := l.GetAccount(ctx, "0xabc")
	wantBalance := int64(balance - wantSuccesses*amount)
	if account.Balance != wantBalance {
		t.Errorf("final balance = %d, want %d", account.Balance, wantBalance)
	}
	if account.Balance < 0 {
		t.Fatalf("balance went negative: %d", account.Balance)
	}
}

func TestAuditTrail(t *testing.T) {
	t.Parallel()

	l, mem := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "0xabc", "Alice", 100)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	err = l.Debit(ctx, "0xabc", 40, "bet:b1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	err = l.Credit(ctx, "0xabc", 15, "payout:b1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	trail := mem.AuditTrail()
	if len(trail) != 3 {
		t.Fatalf("audit entries = %d, want 3", len(trail))
	}

	var sum int64
	for _, entry := range trail {
		if entry.AccountID != "0xabc" {
			t.Errorf("entry account = %s, want 0xabc", entry.AccountID)
		}
		sum += entry.Delta
	}

	// The audit trail must reconcile to the balance.
	account, _ := l.GetAccount(ctx, "0xabc")
	if sum != account.Balance {
		t.Errorf("audit sum = %d, balance = %d", sum, account.Balance)
	}
}

func TestRecordResult(t *testing.T) {
	t.Parallel()

	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.CreateAccount(ctx, "winner", "W", 0)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	_, err = l.CreateAccount(ctx, "loser", "L", 0)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	err = l.RecordResult(ctx, "winner", "loser")
	if err != nil {
		t.Fatalf("record result: %v", err)
	}

	// Participants without accounts are skipped, not an error.
	err = l.RecordResult(ctx, "winner", "agent-without-account")
	if err != nil {
		t.Fatalf("record result with missing loser: %v", err)
	}

	winner, _ := l.GetAccount(ctx, "winner")
	loser, _ := l.GetAccount(ctx, "loser")
	if winner.Wins != 2 || winner.Losses != 0 {
		t.Errorf("winner counters = %d/%d, want 2/0", winner.Wins, winner.Losses)
	}
	if loser.Wins != 0 || loser.Losses != 1 {
		t.Errorf("loser counters = %d/%d, want 0/1", loser.Wins, loser.Losses)
	}
}
