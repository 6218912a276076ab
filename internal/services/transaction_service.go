// Package services orchestrates transaction writes across the primary
// backend, the history cache and the sync queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"centsible/internal/core"
	"centsible/internal/ledger"
)

type (
	// Publisher announces a stored transaction to the sync worker.
	Publisher interface {
		PublishTransactionSync(ctx context.Context, id, version int64) error
	}

	// Invalidator drops cached history that a write makes stale.
	Invalidator interface {
		Invalidate(queries ...core.HistoryQuery)
	}
)

// TransactionService saves transactions and fans out the side effects.
type TransactionService struct {
	writer    ledger.TransactionWriter
	publisher Publisher
	cache     Invalidator
	closers   []func() error
}

type Option func(*TransactionService)

func WithPublisher(p Publisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

func WithInvalidator(c Invalidator) Option {
	return func(s *TransactionService) { s.cache = c }
}

// WithCloser registers a resource released by Close.
func WithCloser(fn func() error) Option {
	return func(s *TransactionService) { s.closers = append(s.closers, fn) }
}

func NewTransactionService(w ledger.TransactionWriter, opts ...Option) *TransactionService {
	s := &TransactionService{writer: w}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AffectedQueries lists the history queries whose result changes when a
// transaction dated d is added.
func AffectedQueries(d core.Date) []core.HistoryQuery {
	p := core.Period{Month: d.Month(), Year: d.Year()}
	return []core.HistoryQuery{
		{Timeframe: core.TimeframeMonth, Period: p},
		{Timeframe: core.TimeframeYear, Period: p},
	}
}

// Create stores tx and returns the backend's row reference. Publishing the
// sync message is best effort: the transaction is already saved.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	ref, err := s.writer.Append(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(AffectedQueries(tx.Date)...)
	}

	if s.publisher == nil {
		return ref, nil
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse transaction ID", "ref", ref, "error", err)
		return ref, nil
	}
	// version 1 for a new transaction
	if err := s.publisher.PublishTransactionSync(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
	return ref, nil
}

func (s *TransactionService) Close() error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
