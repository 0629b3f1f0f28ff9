package ledger

import (
	"context"
	"errors"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// Operation is one unit of work inside a batch. It returns how many rows it
// applied.
type Operation func(ctx context.Context, tx Tx) (int, error)

// ApplyBatch runs every operation inside a single store transaction and
// returns the total applied count. Either every operation commits or none
// does. Errors that are not already typed are reported as storage failures.
func ApplyBatch(ctx context.Context, store Store, ops ...Operation) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	applied := 0
	err := store.Update(ctx, func(tx Tx) error {
		applied = 0
		for _, op := range ops {
			n, err := op(ctx, tx)
			if err != nil {
				return err
			}
			applied += n
		}
		return nil
	})
	if err != nil {
		return 0, typed(err)
	}
	return applied, nil
}

func typed(err error) error {
	if err == nil {
		return nil
	}
	var e *core.Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.Storage("transaction aborted", err)
	}
	return core.Storage("transaction failed", err)
}
