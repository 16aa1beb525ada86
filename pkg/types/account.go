package types

import "time"

// Account is a spectator or contestant wallet known to the engine. Balance is
// held in integer minor units; it is never represented as a float and never
// goes negative. Only the ledger writes Balance, Wins, and Losses.
type Account struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Balance     int64     `json:"balance"`
	Wins        int64     `json:"wins"`
	Losses      int64     `json:"losses"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a copy safe to hand to callers.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
