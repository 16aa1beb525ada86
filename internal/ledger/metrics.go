package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DebitsTotal tracks successful balance debits.
	DebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_ledger_debits_total",
		Help: "Total number of successful account debits",
	})

	// CreditsTotal tracks successful balance credits.
	CreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_ledger_credits_total",
		Help: "Total number of successful account credits",
	})

	// RejectionsTotal tracks rejected mutations by reason.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_ledger_rejections_total",
			Help: "Total number of rejected ledger mutations",
		},
		[]string{"reason"},
	)

	// AuditEntriesTotal tracks audit trail appends.
	AuditEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_ledger_audit_entries_total",
		Help: "Total number of audit trail entries recorded",
	})
)
