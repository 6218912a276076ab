// Package storage keeps transactions in SQLite and answers history
// aggregation queries from it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"centsible/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between the server and its own goroutines
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append stores tx and returns its id as the row reference.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Kind:        string(tx.Kind),
		Year:        int64(tx.Date.Year()),
		Month:       int64(tx.Date.Month()),
		Day:         int64(tx.Date.Day()),
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"kind", row.Kind,
		"amount_cents", row.AmountCents,
		"year", row.Year, "month", row.Month, "day", row.Day)

	return strconv.FormatInt(row.ID, 10), nil
}

// ReadHistory aggregates transactions into daily (month timeframe) or
// monthly (year timeframe) buckets, oldest first. Empty buckets are omitted.
func (r *SQLiteRepository) ReadHistory(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var (
		rows []HistoryRow
		err  error
	)
	if q.Timeframe == core.TimeframeYear {
		rows, err = r.queries.MonthlyHistory(ctx, int64(q.Period.Year))
	} else {
		rows, err = r.queries.DailyHistory(ctx, int64(q.Period.Year), int64(q.Period.Month))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s history: %w", q.Timeframe, err)
	}

	out := make([]core.HistoryRecord, 0, len(rows))
	for _, h := range rows {
		rec := core.HistoryRecord{
			Year:    int(h.Year),
			Month:   int(h.Month),
			Income:  core.Money{Cents: h.IncomeCents},
			Expense: core.Money{Cents: h.ExpenseCents},
		}
		if h.Day.Valid {
			rec.Day = core.DayPtr(int(h.Day.Int64))
		}
		out = append(out, rec)
	}
	return out, nil
}

// Years lists the years having at least one transaction.
func (r *SQLiteRepository) Years(ctx context.Context) ([]int, error) {
	ys, err := r.queries.ListYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	out := make([]int, len(ys))
	for i, y := range ys {
		out[i] = int(y)
	}
	return out, nil
}

// ListTransactions returns transactions dated in [from, to).
func (r *SQLiteRepository) ListTransactions(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsBetween(ctx, dateKey(from), dateKey(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

// GetTransaction loads one transaction by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (*StoredTransaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &StoredTransaction{
		ID:          row.ID,
		Version:     row.Version,
		SyncStatus:  row.SyncStatus,
		Transaction: row.toCore(),
	}, nil
}

// StoredTransaction is a transaction with its database bookkeeping.
type StoredTransaction struct {
	ID         int64
	Version    int64
	SyncStatus string
	core.Transaction
}

// PendingSync is the minimal data the sync queue needs.
type PendingSync struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSync returns up to limit transactions not yet mirrored.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	out := make([]PendingSync, len(rows))
	for i, p := range rows {
		out[i] = PendingSync{ID: p.ID, Version: p.Version, CreatedAt: p.CreatedAt}
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func (t Transaction) toCore() core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(int(t.Year), int(t.Month), int(t.Day)),
		Kind:        core.Kind(t.Kind),
		Description: t.Description,
		Amount:      core.Money{Cents: t.AmountCents},
		Category:    t.Category,
	}
}

func dateKey(t time.Time) int64 {
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}
