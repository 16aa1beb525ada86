package events

// Kafka topics carrying engine events. One topic per event type so consumers
// can subscribe to the subset they care about.
const (
	TopicBetPlaced     = "duelcore.bets.placed"
	TopicDuelResolved  = "duelcore.duels.resolved"
	TopicDuelCancelled = "duelcore.duels.cancelled"
)

// BetPlaced is emitted after a bet is durably recorded and its stake debited.
type BetPlaced struct {
	BetID           string `json:"bet_id"`
	DuelID          string `json:"duel_id"`
	BettorAccountID string `json:"bettor_account_id"`
	Amount          int64  `json:"amount"`
	Prediction      string `json:"prediction"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}

// DuelResolved is emitted after a duel has been resolved and every bet on it
// settled.
type DuelResolved struct {
	DuelID      string `json:"duel_id"`
	WinnerID    string `json:"winner_id"`
	TotalPool   int64  `json:"total_pool"`
	WinningPool int64  `json:"winning_pool"`
	PaidOut     int64  `json:"paid_out"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

// DuelCancelled is emitted after a duel has been cancelled and all bets
// refunded.
type DuelCancelled struct {
	DuelID   string `json:"duel_id"`
	Reason   string `json:"reason"`
	Refunded int64  `json:"refunded"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
