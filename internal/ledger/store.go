// Package ledger implements the transaction series engine: generation of
// installment and recurring series, scoped mutation, anticipation and
// settlement, all committed through a single atomic store boundary.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// Store is the entity store the engine commits through. Update runs fn inside
// one atomic write transaction: if fn returns an error nothing is persisted.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
}

// Tx is the view of the store available inside a transaction.
type Tx interface {
	// Instance returns core.ErrNotFound when the id is unknown.
	Instance(ctx context.Context, id string) (core.Instance, error)
	// SeriesMembers returns the members ordered by installment, then period.
	SeriesMembers(ctx context.Context, seriesID string) ([]core.Instance, error)
	TransferLegs(ctx context.Context, transferID string) ([]core.Instance, error)
	PeriodInstances(ctx context.Context, userID string, p core.Period) ([]core.Instance, error)

	InsertInstances(ctx context.Context, items []core.Instance) error
	// UpdateInstance reports whether a row was changed.
	UpdateInstance(ctx context.Context, item core.Instance) (bool, error)
	// DeleteInstances returns the number of rows removed.
	DeleteInstances(ctx context.Context, ids []string) (int, error)

	InsertAnticipation(ctx context.Context, rec core.AnticipationRecord) error
	Anticipations(ctx context.Context, seriesID string) ([]core.AnticipationRecord, error)

	// FindReference matches name case-insensitively within user and kind.
	FindReference(ctx context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error)
	ReferenceByID(ctx context.Context, id string) (core.Reference, error)
	InsertReference(ctx context.Context, ref core.Reference) error
}

// IDGenerator produces opaque unique identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
