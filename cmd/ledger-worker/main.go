package main

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gladysonss/opensheets-app-sub000/internal/amqp"
	"github.com/gladysonss/opensheets-app-sub000/internal/cli"
	"github.com/gladysonss/opensheets-app-sub000/internal/config"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/sheets"
	gsheet "github.com/gladysonss/opensheets-app-sub000/internal/sheets/google"
	sheetsmem "github.com/gladysonss/opensheets-app-sub000/internal/sheets/memory"
	"github.com/gladysonss/opensheets-app-sub000/internal/storage"
	"github.com/gladysonss/opensheets-app-sub000/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	if err != nil {
		cli.Fatal(nil, "Configuration error", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	logger.Info("Starting ledger worker",
		log.FieldOperation, log.OpStartup,
		"batch_size", cfg.MirrorBatchSize,
		"reconcile_interval", cfg.MirrorReconcileInterval)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite storage", err)
	}
	defer repo.Close()

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(ledger.New(repo), mirror, worker.MirrorConfig{
		BatchSize:         cfg.MirrorBatchSize,
		ReconcileInterval: cfg.MirrorReconcileInterval,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
		err := client.ConsumeEvents(gctx, w.HandleEvent)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return w.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Ledger worker stopped with error", log.FieldError, err)
		return
	}
	logger.Info("Ledger worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

// newMirror connects to Google Sheets when a spreadsheet is configured and
// falls back to an in-memory mirror otherwise.
func newMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Mirror, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets mirror enabled",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}
