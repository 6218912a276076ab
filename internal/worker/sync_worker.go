// Package worker mirrors transactions stored in SQLite to the remote
// ledger (Google Sheets).
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"centsible/internal/amqp"
	"centsible/internal/ledger"
	"centsible/internal/storage"
)

// SyncStore is the bookkeeping side of the SQLite repository.
type SyncStore interface {
	GetTransaction(ctx context.Context, id int64) (*storage.StoredTransaction, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker handles synchronization of transactions from SQLite to the
// remote ledger.
type SyncWorker struct {
	store     SyncStore
	remote    ledger.TransactionWriter
	batchSize int
}

func NewSyncWorker(store SyncStore, remote ledger.TransactionWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{store: store, remote: remote, batchSize: batchSize}
}

// HandleSyncMessage processes a single sync message from AMQP. Returning an
// error requeues the message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	stored, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	// redelivery after a successful append
	if stored.SyncStatus == "synced" && msg.Version <= stored.Version {
		slog.InfoContext(ctx, "Transaction already synced, skipping", "id", msg.ID)
		return nil
	}
	return w.sync(ctx, stored)
}

func (w *SyncWorker) sync(ctx context.Context, stored *storage.StoredTransaction) error {
	ref, err := w.remote.Append(ctx, stored.Transaction)
	if err != nil {
		if merr := w.store.MarkSyncError(ctx, stored.ID); merr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", stored.ID, "error", merr)
		}
		return fmt.Errorf("append to remote ledger: %w", err)
	}
	if err := w.store.MarkSynced(ctx, stored.ID); err != nil {
		// the row is already in the sheet; a retry would duplicate it
		slog.WarnContext(ctx, "Failed to mark transaction as synced", "id", stored.ID, "error", err)
	}
	slog.InfoContext(ctx, "Synced transaction",
		"id", stored.ID,
		"kind", stored.Kind,
		"amount_cents", stored.Amount.Cents,
		"remote_ref", ref)
	return nil
}

// ProcessPendingTransactions syncs up to one batch of pending
// transactions. It backs up the queue when messages are lost.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck drains a larger batch once when the worker starts, to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		stored, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}
		if err := w.sync(ctx, stored); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}
