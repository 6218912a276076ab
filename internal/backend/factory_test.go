package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"centsible/internal/config"
	"centsible/internal/core"
	applog "centsible/internal/log"
)

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	csv := "date,kind,description,amount,category\n2024-03-05,income,salary,100,Work\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_transactions.csv"), []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFactory(applog.Discard())
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatal(err)
	}
	if res.Publisher != nil || res.Cleanup != nil {
		t.Fatalf("memory backend needs no publisher or cleanup: %+v", res)
	}
	years, err := res.Backend.Years(context.Background())
	if err != nil || len(years) != 1 || years[0] != 2024 {
		t.Fatalf("Years = %v, %v", years, err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	f := NewFactory(applog.Discard())
	res, err := f.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "centsible.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if _, ok := res.Backend.(Pinger); !ok {
		t.Error("sqlite backend should support Ping")
	}
	tx := core.Transaction{
		Date: core.NewDate(2024, 3, 5), Kind: core.KindExpense,
		Description: "rent", Amount: core.Money{Cents: 50000}, Category: "Home",
	}
	if _, err := res.Backend.Append(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	q := core.HistoryQuery{Timeframe: core.TimeframeYear, Period: core.Period{Month: 1, Year: 2024}}
	recs, err := res.Backend.ReadHistory(context.Background(), q)
	if err != nil || len(recs) != 1 || recs[0].Expense.Cents != 50000 {
		t.Fatalf("ReadHistory = %+v, %v", recs, err)
	}
}

func TestCreateBackendRejectsUnknownType(t *testing.T) {
	if _, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "postgres"}); err == nil {
		t.Fatal("expected error")
	}
	if BackendType("postgres").IsValid() || !MemoryBackend.IsValid() {
		t.Fatal("IsValid mismatch")
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sheets", GoogleSpreadsheetID: "abc", SeedDir: "seed"}
	got := FromAppConfig(cfg)
	if got.Type != SheetsBackend || got.GoogleSpreadsheetID != "abc" || got.DataDirectory != "seed" {
		t.Fatalf("unexpected config %+v", got)
	}
}
