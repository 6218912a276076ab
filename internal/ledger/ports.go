// Package ledger defines the ports every transaction backend implements.
package ledger

import (
	"context"

	"centsible/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// HistoryReader aggregates transactions into chronologically ordered
	// buckets: daily for the month timeframe, monthly for the year timeframe.
	HistoryReader interface {
		ReadHistory(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error)
	}

	// PeriodLister returns the years having at least one transaction,
	// ascending.
	PeriodLister interface {
		Years(ctx context.Context) ([]int, error)
	}
)
