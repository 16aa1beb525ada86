package duel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DuelsCreatedTotal tracks created duels by type.
	DuelsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_duels_created_total",
			Help: "Total number of duels created",
		},
		[]string{"type"},
	)

	// DuelsStartedTotal tracks waiting->active transitions.
	DuelsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_duels_started_total",
		Help: "Total number of duels started",
	})

	// DuelsResolvedTotal tracks resolved duels.
	DuelsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_duels_resolved_total",
		Help: "Total number of duels resolved",
	})

	// DuelsCancelledTotal tracks cancelled duels.
	DuelsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_duels_cancelled_total",
		Help: "Total number of duels cancelled",
	})

	// TransitionsRejectedTotal tracks illegal transition attempts by verb.
	TransitionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_duel_transitions_rejected_total",
			Help: "Total number of rejected lifecycle transitions",
		},
		[]string{"transition"},
	)

	// BetsPlacedTotal tracks accepted bets.
	BetsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_bets_placed_total",
		Help: "Total number of bets placed",
	})

	// BetsRejectedTotal tracks rejected bets by reason.
	BetsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_bets_rejected_total",
			Help: "Total number of rejected bets",
		},
		[]string{"reason"},
	)

	// BetAmount tracks bet stake sizes in minor units.
	BetAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "duelcore_bet_amount",
		Help:    "Bet stake size in minor units",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10, 40, ..., 163840
	})

	// SettlementDurationSeconds tracks the resolve settlement pass latency.
	SettlementDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "duelcore_settlement_duration_seconds",
		Help:    "Duration of duel settlement passes",
		Buckets: prometheus.DefBuckets,
	})

	// PayoutsDistributedTotal tracks total payout minor units credited.
	PayoutsDistributedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_payouts_distributed_total",
		Help: "Total payout amount credited to winning bettors, in minor units",
	})
)
