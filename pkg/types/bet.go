package types

import "time"

// Bet is a reserved stake placed by a spectator on one of a duel's
// participants. The amount is debited from the bettor at placement time, so
// between placement and settlement the funds are escrowed by the engine.
// Payout is written exactly once, at settlement; Settled is the idempotency
// marker that makes a second settlement pass a no-op.
type Bet struct {
	ID              string    `json:"id"`
	DuelID          string    `json:"duel_id"`
	BettorAccountID string    `json:"bettor_account_id"`
	Amount          int64     `json:"amount"`
	Prediction      string    `json:"prediction"`
	Payout          int64     `json:"payout"`
	Settled         bool      `json:"settled"`
	PlacedAt        time.Time `json:"placed_at"`
}

// Clone returns a copy safe to hand to callers.
func (b *Bet) Clone() *Bet {
	c := *b
	return &c
}
