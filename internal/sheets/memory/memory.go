package memory

import (
	"context"
	"sync"

	ports "github.com/gladysonss/opensheets-app-sub000/internal/sheets"
)

// Mirror keeps mirrored rows in insertion order. It backs the worker when
// no spreadsheet is configured and in tests.
type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string]ports.Row
}

var _ ports.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string]ports.Row{}}
}

func (m *Mirror) UpsertRows(_ context.Context, rows []ports.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		if _, ok := m.rows[r.ID]; !ok {
			m.order = append(m.order, r.ID)
		}
		m.rows[r.ID] = r
	}
	return nil
}

func (m *Mirror) DeleteRows(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			delete(m.rows, id)
			removed++
		}
	}
	if removed > 0 {
		kept := m.order[:0]
		for _, id := range m.order {
			if _, ok := m.rows[id]; ok {
				kept = append(kept, id)
			}
		}
		m.order = kept
	}
	return removed, nil
}

func (m *Mirror) ListRows(_ context.Context) ([]ports.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Row, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out, nil
}

// Row returns the mirrored row for id.
func (m *Mirror) Row(id string) (ports.Row, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}
