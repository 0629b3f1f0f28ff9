// Package memory is an in-process implementation of ledger.Store.
// Data is lost on restart; it backs tests and the memory data backend.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

type state struct {
	instances     map[string]core.Instance
	anticipations []core.AnticipationRecord
	refs          map[string]core.Reference
}

func (s *state) clone() *state {
	out := &state{
		instances:     maps.Clone(s.instances),
		anticipations: slices.Clone(s.anticipations),
		refs:          maps.Clone(s.refs),
	}
	return out
}

// Store keeps ledger state in memory. Writers are serialized; each write
// transaction works on a copy that replaces the live state only when the
// transaction function succeeds.
type Store struct {
	mu  sync.RWMutex
	cur *state
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{cur: &state{
		instances: make(map[string]core.Instance),
		refs:      make(map[string]core.Reference),
	}}
}

func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.cur.clone()
	if err := fn(&tx{st: work, writable: true}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cur = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{st: s.cur})
}

// Len returns the number of stored instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cur.instances)
}

type tx struct {
	st       *state
	writable bool
}

func (t *tx) Instance(_ context.Context, id string) (core.Instance, error) {
	inst, ok := t.st.instances[id]
	if !ok {
		return core.Instance{}, core.NotFound("transaction %s not found", id)
	}
	return inst, nil
}

func (t *tx) SeriesMembers(_ context.Context, seriesID string) ([]core.Instance, error) {
	return t.collect(func(i core.Instance) bool { return i.InSeries(seriesID) }), nil
}

func (t *tx) TransferLegs(_ context.Context, transferID string) ([]core.Instance, error) {
	return t.collect(func(i core.Instance) bool { return transferID != "" && i.TransferID == transferID }), nil
}

func (t *tx) PeriodInstances(_ context.Context, userID string, p core.Period) ([]core.Instance, error) {
	return t.collect(func(i core.Instance) bool { return i.UserID == userID && i.Period == p }), nil
}

func (t *tx) collect(match func(core.Instance) bool) []core.Instance {
	var out []core.Instance
	for _, inst := range t.st.instances {
		if match(inst) {
			out = append(out, inst)
		}
	}
	slices.SortFunc(out, compareInstances)
	return out
}

func compareInstances(a, b core.Instance) int {
	if a.CurrentInstallment != b.CurrentInstallment {
		return a.CurrentInstallment - b.CurrentInstallment
	}
	if c := a.Period.Compare(b.Period); c != 0 {
		return c
	}
	if !a.PurchaseDate.Equal(b.PurchaseDate.Time) {
		return a.PurchaseDate.Compare(b.PurchaseDate.Time)
	}
	return strings.Compare(a.ID, b.ID)
}

func (t *tx) InsertInstances(_ context.Context, items []core.Instance) error {
	if !t.writable {
		return errReadOnly
	}
	for _, inst := range items {
		if _, exists := t.st.instances[inst.ID]; exists {
			return core.Conflict("transaction %s already exists", inst.ID)
		}
		t.st.instances[inst.ID] = inst
	}
	return nil
}

func (t *tx) UpdateInstance(_ context.Context, item core.Instance) (bool, error) {
	if !t.writable {
		return false, errReadOnly
	}
	if _, ok := t.st.instances[item.ID]; !ok {
		return false, nil
	}
	t.st.instances[item.ID] = item
	return true, nil
}

func (t *tx) DeleteInstances(_ context.Context, ids []string) (int, error) {
	if !t.writable {
		return 0, errReadOnly
	}
	n := 0
	for _, id := range ids {
		if _, ok := t.st.instances[id]; ok {
			delete(t.st.instances, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertAnticipation(_ context.Context, rec core.AnticipationRecord) error {
	if !t.writable {
		return errReadOnly
	}
	rec.ConsumedIDs = slices.Clone(rec.ConsumedIDs)
	t.st.anticipations = append(t.st.anticipations, rec)
	return nil
}

func (t *tx) Anticipations(_ context.Context, seriesID string) ([]core.AnticipationRecord, error) {
	var out []core.AnticipationRecord
	for _, rec := range t.st.anticipations {
		if rec.SeriesID == seriesID {
			rec.ConsumedIDs = slices.Clone(rec.ConsumedIDs)
			out = append(out, rec)
		}
	}
	return out, nil
}

func (t *tx) FindReference(_ context.Context, userID string, kind core.ReferenceKind, name string) (core.Reference, error) {
	for _, ref := range t.st.refs {
		if ref.UserID == userID && ref.Kind == kind && core.NameKey(ref.Name) == core.NameKey(name) {
			return ref, nil
		}
	}
	return core.Reference{}, core.NotFound("%s %q not found", kind, name)
}

func (t *tx) ReferenceByID(_ context.Context, id string) (core.Reference, error) {
	ref, ok := t.st.refs[id]
	if !ok {
		return core.Reference{}, core.NotFound("reference %s not found", id)
	}
	return ref, nil
}

func (t *tx) InsertReference(ctx context.Context, ref core.Reference) error {
	if !t.writable {
		return errReadOnly
	}
	if _, err := t.FindReference(ctx, ref.UserID, ref.Kind, ref.Name); err == nil {
		return core.Conflict("%s %q already exists", ref.Kind, ref.Name)
	}
	t.st.refs[ref.ID] = ref
	return nil
}
