package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/amqp"
	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	"github.com/gladysonss/opensheets-app-sub000/internal/sheets"
)

// InstanceReader loads the current state of a ledger row.
type InstanceReader interface {
	Instance(ctx context.Context, userID, id string) (core.Instance, error)
}

// MirrorConfig holds configuration for the mirror worker
type MirrorConfig struct {
	// BatchSize caps the rows sent to the mirror in one call (default: 50)
	BatchSize int

	// ReconcileInterval is how often the whole mirror is compared against
	// the ledger (default: 10m)
	ReconcileInterval time.Duration
}

func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{BatchSize: 50, ReconcileInterval: 10 * time.Minute}
}

// MirrorWorker keeps the spreadsheet mirror in step with the ledger. Events
// carry ids only, so every row is re-read from the ledger before writing.
type MirrorWorker struct {
	ledger InstanceReader
	mirror sheets.Mirror
	config MirrorConfig
	logger *log.Logger
}

func NewMirrorWorker(ledger InstanceReader, mirror sheets.Mirror, config MirrorConfig, logger *log.Logger) *MirrorWorker {
	def := DefaultMirrorConfig()
	if config.BatchSize < 1 {
		config.BatchSize = def.BatchSize
	}
	if config.ReconcileInterval <= 0 {
		config.ReconcileInterval = def.ReconcileInterval
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		ledger: ledger,
		mirror: mirror,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one ledger event to the mirror. Returning an error
// asks the consumer to redeliver the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	rows, gone, err := w.load(ctx, msg.UserID, msg.InstanceIDs)
	if err != nil {
		return err
	}
	gone = append(gone, msg.RemovedIDs...)

	if err := w.upsert(ctx, rows); err != nil {
		return err
	}
	removed, err := w.delete(ctx, gone)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Ledger event mirrored",
		log.FieldEventType, msg.Type,
		log.FieldSeriesID, msg.SeriesID,
		"upserted", len(rows),
		"removed", removed)
	return nil
}

// load reads the current rows. Ids that no longer exist are returned in gone
// so a stale row is removed instead of rewritten.
func (w *MirrorWorker) load(ctx context.Context, userID string, ids []string) ([]sheets.Row, []string, error) {
	var (
		rows []sheets.Row
		gone []string
	)
	for _, id := range ids {
		inst, err := w.ledger.Instance(ctx, userID, id)
		if errors.Is(err, core.ErrNotFound) {
			gone = append(gone, id)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load instance %s: %w", id, err)
		}
		rows = append(rows, sheets.FromInstance(inst))
	}
	return rows, gone, nil
}

func (w *MirrorWorker) upsert(ctx context.Context, rows []sheets.Row) error {
	for start := 0; start < len(rows); start += w.config.BatchSize {
		end := min(start+w.config.BatchSize, len(rows))
		if err := w.mirror.UpsertRows(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("upsert mirror rows: %w", err)
		}
	}
	return nil
}

func (w *MirrorWorker) delete(ctx context.Context, ids []string) (int, error) {
	total := 0
	for start := 0; start < len(ids); start += w.config.BatchSize {
		end := min(start+w.config.BatchSize, len(ids))
		n, err := w.mirror.DeleteRows(ctx, ids[start:end])
		if err != nil {
			return total, fmt.Errorf("delete mirror rows: %w", err)
		}
		total += n
	}
	return total, nil
}

// ReconcileResult reports what a reconciliation pass changed.
type ReconcileResult struct {
	Checked   int
	Refreshed int
	Removed   int
}

// Reconcile compares every mirrored row with the ledger, rewriting rows that
// drifted and removing rows whose instance is gone. It repairs the mirror
// after lost events.
func (w *MirrorWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	mirrored, err := w.mirror.ListRows(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list mirror rows: %w", err)
	}

	var (
		res     = ReconcileResult{Checked: len(mirrored)}
		stale   []sheets.Row
		missing []string
	)
	for _, row := range mirrored {
		inst, err := w.ledger.Instance(ctx, row.UserID, row.ID)
		if errors.Is(err, core.ErrNotFound) {
			missing = append(missing, row.ID)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("load instance %s: %w", row.ID, err)
		}
		if current := sheets.FromInstance(inst); current != row {
			stale = append(stale, current)
		}
	}

	if err := w.upsert(ctx, stale); err != nil {
		return res, err
	}
	res.Refreshed = len(stale)
	if res.Removed, err = w.delete(ctx, missing); err != nil {
		return res, err
	}
	return res, nil
}

// Run reconciles on every interval until ctx is done. Failed passes are
// logged and retried on the next tick.
func (w *MirrorWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.ReconcileInterval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Mirror reconciliation started", "interval", w.config.ReconcileInterval)
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Mirror reconciliation stopped")
			return nil
		case <-ticker.C:
			res, err := w.Reconcile(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Mirror reconciliation failed", log.FieldError, err)
				continue
			}
			if res.Refreshed > 0 || res.Removed > 0 {
				w.logger.InfoContext(ctx, "Mirror reconciled",
					"checked", res.Checked,
					"refreshed", res.Refreshed,
					"removed", res.Removed)
			}
		}
	}
}
