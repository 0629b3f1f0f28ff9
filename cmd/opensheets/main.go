package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gladysonss/opensheets-app-sub000/internal/backend"
	"github.com/gladysonss/opensheets-app-sub000/internal/cache"
	"github.com/gladysonss/opensheets-app-sub000/internal/cli"
	"github.com/gladysonss/opensheets-app-sub000/internal/config"
	apphttp "github.com/gladysonss/opensheets-app-sub000/internal/http"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		cli.Fatal(nil, "Configuration error", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	logger.Info("Starting opensheets",
		"port", cfg.Port,
		log.FieldOperation, log.OpStartup,
		"backend", cfg.DataBackend)

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backend.FromAppConfig(cfg))
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err)
	}
	defer func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	refs := cache.NewReferenceCache(cfg.ReferenceCacheSize, cfg.ReferenceCacheTTL)
	svc := services.NewLedgerService(ledger.New(res.Store), res.Publisher, refs, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              res.Ready,
		Logger:             logger,
	}, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cache.NewManager(refs).Run(gctx, cfg.ReferenceCacheTTL)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Server stopped gracefully")
}
