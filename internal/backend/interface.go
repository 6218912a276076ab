// Package backend builds the configured transaction store.
package backend

import (
	"context"

	"centsible/internal/config"
	"centsible/internal/ledger"
	"centsible/internal/services"
)

// Backend is everything the server reads and writes.
type Backend interface {
	ledger.TransactionWriter
	ledger.HistoryReader
	ledger.PeriodLister
}

// Pinger is implemented by backends with a reachable dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CleanupFunc func() error

// BackendResult is the backend plus what the server wires around it.
// Publisher is set only when the sqlite backend has a broker.
type BackendResult struct {
	Backend   Backend
	Publisher services.Publisher
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	}
	return false
}

// Config holds the subset of settings backends need.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	DataDirectory string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(c *config.Config) Config {
	return Config{
		Type:                     BackendType(c.DataBackend),
		SQLiteDBPath:             c.SQLiteDBPath,
		AMQPURL:                  c.AMQPURL,
		AMQPExchange:             c.AMQPExchange,
		AMQPQueue:                c.AMQPQueue,
		GoogleSpreadsheetID:      c.GoogleSpreadsheetID,
		GoogleSheetName:          c.GoogleSheetName,
		GoogleServiceAccountJSON: c.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: c.GoogleServiceAccountFile,
		DataDirectory:            c.SeedDir,
	}
}
