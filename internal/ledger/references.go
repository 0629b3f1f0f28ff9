package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// ResolveReference finds a category, payer, account or card by name,
// ignoring case.
func (e *Engine) ResolveReference(ctx context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Reference{}, core.Validation("reference name is required")
	}
	var ref core.Reference
	err := e.store.View(ctx, func(tx Tx) error {
		var err error
		ref, err = tx.FindReference(ctx, userID, kind, name)
		if errors.Is(err, core.ErrNotFound) {
			return core.NotFound("%s %q not found", kind, name)
		}
		return err
	})
	return ref, typed(err)
}

// EnsureReference returns the reference with the given name, creating it
// when absent.
func (e *Engine) EnsureReference(ctx context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error) {
	name = strings.TrimSpace(name)
	switch {
	case strings.TrimSpace(userID) == "":
		return core.Reference{}, core.Validation("user is required")
	case name == "":
		return core.Reference{}, core.Validation("reference name is required")
	case len(name) > 100:
		return core.Reference{}, core.Validation("reference name too long (max 100 characters)")
	}
	var ref core.Reference
	_, err := ApplyBatch(ctx, e.store, func(ctx context.Context, tx Tx) (int, error) {
		existing, err := tx.FindReference(ctx, userID, kind, name)
		if err == nil {
			ref = existing
			return 0, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return 0, err
		}
		ref = core.Reference{ID: e.ids.NewID(), UserID: userID, Kind: kind, Name: name}
		return 1, tx.InsertReference(ctx, ref)
	})
	if err != nil {
		return core.Reference{}, err
	}
	return ref, nil
}
