package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Transaction is one row of the transactions table.
type Transaction struct {
	ID          int64
	Kind        string
	Year        int64
	Month       int64
	Day         int64
	Description string
	AmountCents int64
	Category    string
	CreatedAt   time.Time
	Version     int64
	SyncStatus  string
	SyncedAt    sql.NullTime
}

const transactionColumns = `id, kind, year, month, day, description, amount_cents, category, created_at, version, sync_status, synced_at`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Kind, &t.Year, &t.Month, &t.Day, &t.Description,
		&t.AmountCents, &t.Category, &t.CreatedAt, &t.Version, &t.SyncStatus, &t.SyncedAt)
	return t, err
}

const createTransaction = `
INSERT INTO transactions (kind, year, month, day, description, amount_cents, category)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Kind        string
	Year        int64
	Month       int64
	Day         int64
	Description string
	AmountCents int64
	Category    string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Kind, arg.Year, arg.Month, arg.Day, arg.Description, arg.AmountCents, arg.Category)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactionsBetween = `
SELECT ` + transactionColumns + ` FROM transactions
WHERE (year * 10000 + month * 100 + day) >= ? AND (year * 10000 + month * 100 + day) < ?
ORDER BY year, month, day, id`

// ListTransactionsBetween takes yyyymmdd bounds, from inclusive, to exclusive.
func (q *Queries) ListTransactionsBetween(ctx context.Context, from, to int64) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

type HistoryRow struct {
	Year         int64
	Month        int64
	Day          sql.NullInt64
	IncomeCents  int64
	ExpenseCents int64
}

const dailyHistory = `
SELECT year, month, day,
       COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents END), 0),
       COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents END), 0)
FROM transactions
WHERE year = ? AND month = ?
GROUP BY year, month, day
ORDER BY year, month, day`

func (q *Queries) DailyHistory(ctx context.Context, year, month int64) ([]HistoryRow, error) {
	return q.history(ctx, dailyHistory, year, month)
}

const monthlyHistory = `
SELECT year, month, NULL,
       COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents END), 0),
       COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents END), 0)
FROM transactions
WHERE year = ?
GROUP BY year, month
ORDER BY year, month`

func (q *Queries) MonthlyHistory(ctx context.Context, year int64) ([]HistoryRow, error) {
	return q.history(ctx, monthlyHistory, year)
}

func (q *Queries) history(ctx context.Context, query string, args ...any) ([]HistoryRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.Year, &h.Month, &h.Day, &h.IncomeCents, &h.ExpenseCents); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

const listYears = `SELECT DISTINCT year FROM transactions ORDER BY year`

func (q *Queries) ListYears(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listYears)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []int64
	for rows.Next() {
		var y int64
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

const getPendingSync = `
SELECT id, version, created_at FROM transactions
WHERE sync_status = 'pending'
ORDER BY created_at, id
LIMIT ?`

type PendingSyncRow struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSyncRow
	for rows.Next() {
		var p PendingSyncRow
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const markSynced = `UPDATE transactions SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) MarkSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markSynced, id)
	return err
}

const markSyncError = `UPDATE transactions SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markSyncError, id)
	return err
}
