package backend

import (
	"context"
	"errors"
	"fmt"

	"centsible/internal/amqp"
	"centsible/internal/ledger/google"
	"centsible/internal/ledger/memory"
	applog "centsible/internal/log"
	"centsible/internal/storage"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromSlog(nil, applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	switch cfg.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, cfg)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, cfg)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, cfg)
	}
	return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	result := &BackendResult{Backend: repo, Cleanup: repo.Close}

	// the broker is optional: without it the worker's poller picks rows up
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			result.Publisher = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", result.Publisher != nil)
	return result, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "data"
	}
	store := memory.NewFromFiles(dir)
	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dir, "transactions", store.Len())
	return &BackendResult{Backend: store}, nil
}
