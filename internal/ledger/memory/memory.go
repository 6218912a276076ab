// Package memory is an in-process transaction store, seeded from a CSV file
// for local development.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"centsible/internal/core"
	"centsible/internal/ledger"
)

// SeedFile is read from the data directory by NewFromFiles.
const SeedFile = "seed_transactions.csv"

var (
	_ ledger.TransactionWriter = (*Store)(nil)
	_ ledger.HistoryReader     = (*Store)(nil)
	_ ledger.PeriodLister      = (*Store)(nil)
)

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New(seed ...core.Transaction) *Store {
	return &Store{items: slices.Clone(seed)}
}

// NewFromFiles loads base/seed_transactions.csv when present. Rows that do
// not parse are skipped.
func NewFromFiles(base string) *Store {
	f, err := os.Open(filepath.Join(base, SeedFile))
	if err != nil {
		return New()
	}
	defer f.Close()
	txs, _ := ReadCSV(f)
	return New(txs...)
}

// ReadCSV parses "date,kind,description,amount,category" rows. A header row
// and lines starting with # are ignored. The returned error joins every
// rejected row.
func ReadCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out  []core.Transaction
		errs []error
	)
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read seed csv: %w", err)
		}
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		line, _ := cr.FieldPos(0)
		tx, err := parseRow(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		out = append(out, tx)
	}
	return out, errors.Join(errs...)
}

func parseRow(rec []string) (core.Transaction, error) {
	if len(rec) < 5 {
		return core.Transaction{}, fmt.Errorf("expected 5 fields, got %d", len(rec))
	}
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[0]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	kind, err := core.ParseKind(rec[1])
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(rec[3])
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Date:        core.Date{Time: d},
		Kind:        kind,
		Description: strings.TrimSpace(rec[2]),
		Amount:      core.Money{Cents: cents},
		Category:    strings.TrimSpace(rec[4]),
	}
	return tx, tx.Validate()
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) ReadHistory(_ context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	items := slices.Clone(s.items)
	s.mu.Unlock()
	return core.Aggregate(q, items), nil
}

func (s *Store) Years(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	years := make([]int, 0, len(s.items))
	for _, tx := range s.items {
		years = append(years, tx.Date.Year())
	}
	slices.Sort(years)
	return slices.Compact(years), nil
}

// Len returns how many transactions are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
