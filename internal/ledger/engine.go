package ledger

import (
	"context"
	"errors"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// Engine runs series operations against a Store.
type Engine struct {
	store Store
	ids   IDGenerator
	now   Clock
}

// Option configures an Engine.
type Option func(*Engine)

func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

func WithClock(c Clock) Option {
	return func(e *Engine) { e.now = c }
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, ids: UUIDGenerator{}, now: systemClock}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Instance returns one instance owned by userID.
func (e *Engine) Instance(ctx context.Context, userID, id string) (core.Instance, error) {
	var out core.Instance
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = ownedInstance(ctx, tx, userID, id)
		return err
	})
	return out, typed(err)
}

// Series returns every member of a series owned by userID.
func (e *Engine) Series(ctx context.Context, userID, seriesID string) ([]core.Instance, error) {
	var out []core.Instance
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		out, err = ownedSeries(ctx, tx, userID, seriesID)
		return err
	})
	return out, typed(err)
}

// Summary projects the balance of one period.
func (e *Engine) Summary(ctx context.Context, userID string, p core.Period) (core.PeriodSummary, error) {
	if !p.Valid() {
		return core.PeriodSummary{}, core.Validation("invalid period")
	}
	var items []core.Instance
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		items, err = tx.PeriodInstances(ctx, userID, p)
		return err
	})
	if err != nil {
		return core.PeriodSummary{}, typed(err)
	}
	return core.Summarize(p, items), nil
}

func ownedInstance(ctx context.Context, tx Tx, userID, id string) (core.Instance, error) {
	inst, err := tx.Instance(ctx, id)
	if errors.Is(err, core.ErrNotFound) || (err == nil && inst.UserID != userID) {
		return core.Instance{}, core.NotFound("transaction %s not found", id)
	}
	return inst, err
}

func ownedSeries(ctx context.Context, tx Tx, userID, seriesID string) ([]core.Instance, error) {
	members, err := tx.SeriesMembers(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	owned := members[:0:0]
	for _, m := range members {
		if m.UserID == userID {
			owned = append(owned, m)
		}
	}
	if len(owned) == 0 {
		return nil, core.NotFound("series %s not found", seriesID)
	}
	return owned, nil
}

// checkReferences makes sure every non-empty reference id exists, is owned by
// userID and has the expected kind.
func checkReferences(ctx context.Context, tx Tx, userID string, refs map[core.ReferenceKind]string) error {
	for _, kind := range []core.ReferenceKind{core.RefCategory, core.RefPayer, core.RefAccount, core.RefCard} {
		id := refs[kind]
		if id == "" {
			continue
		}
		ref, err := tx.ReferenceByID(ctx, id)
		if errors.Is(err, core.ErrNotFound) || (err == nil && (ref.UserID != userID || ref.Kind != kind)) {
			return core.NotFound("%s %s not found", kind, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
