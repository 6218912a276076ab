package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"centsible/internal/amqp"
	"centsible/internal/cli"
	"centsible/internal/ledger/google"
	applog "centsible/internal/log"
	"centsible/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker, nil)
	logger.Info("Starting centsible-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.HasSheets() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required to sync transactions")
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	remote, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	syncWorker := worker.NewSyncWorker(repo, remote, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.ErrorOp(ctx, "Failed startup sync check", applog.OpStartup, err)
	}

	poller := worker.NewPoller(syncWorker, cfg.SyncInterval)
	if err := poller.Start(ctx); err != nil {
		logger.Error("Failed to start sync poller", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HasAMQP() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the poller still picks up pending rows
			logger.Warn("Failed to initialize AMQP client, relying on polling", "error", err)
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeWithRetry(gctx, syncWorker.HandleSyncMessage)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("AMQP disabled, relying on polling", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return poller.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorOp(context.Background(), "Worker stopped with error", applog.OpShutdown, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
