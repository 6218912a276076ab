package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"centsible/internal/auth"
	"centsible/internal/backend"
	"centsible/internal/cache"
	"centsible/internal/cli"
	apphttp "centsible/internal/http"
	applog "centsible/internal/log"
	"centsible/internal/middleware/ratelimit"
	"centsible/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp, nil)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).
		CreateBackend(ctx, backend.FromAppConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	historyCache := cache.NewHistoryCache(res.Backend, cfg.HistoryCacheSize, cfg.HistoryCacheTTL)

	opts := []services.Option{services.WithInvalidator(historyCache)}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	if res.Cleanup != nil {
		opts = append(opts, services.WithCloser(res.Cleanup))
	}
	txService := services.NewTransactionService(res.Backend, opts...)
	defer func() {
		if err := txService.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	deps := apphttp.Deps{
		History:      historyCache,
		Periods:      res.Backend,
		Transactions: txService,
		Sessions:     auth.NewSessionStore(cfg.SessionTTL),
		Credentials:  auth.Credentials{Username: cfg.AuthUsername, Password: cfg.AuthPassword},
		Cleaners:     []cache.Cleaner{historyCache},

		CleanupInterval: cfg.HistoryCacheTTL,
		Locale:          cfg.Locale,
		SecureCookies:   cfg.SecureCookies,
		RateLimit:       ratelimit.DefaultConfig(),
		Logger:          logger.WithComponent(applog.ComponentHTTP),
	}
	if p, ok := res.Backend.(backend.Pinger); ok {
		deps.Ready = p
	}
	if cfg.AuthPassword == "" {
		logger.Warn("AUTH_PASSWORD is empty, sign-in is disabled")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting centsible server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.ErrorOp(context.Background(), "Server error", applog.OpShutdown, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
