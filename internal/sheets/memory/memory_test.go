package memory

import (
	"context"
	"testing"

	ports "github.com/gladysonss/opensheets-app-sub000/internal/sheets"
)

func TestMirrorUpsertKeepsOrder(t *testing.T) {
	m := New()
	ctx := context.Background()

	_ = m.UpsertRows(ctx, []ports.Row{{ID: "a", Amount: "-1.00"}, {ID: "b"}, {ID: "c"}})
	_ = m.UpsertRows(ctx, []ports.Row{{ID: "a", Amount: "-2.00"}})

	rows, _ := m.ListRows(ctx)
	if len(rows) != 3 || rows[0].ID != "a" || rows[0].Amount != "-2.00" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestMirrorDelete(t *testing.T) {
	m := New()
	ctx := context.Background()
	_ = m.UpsertRows(ctx, []ports.Row{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	n, err := m.DeleteRows(ctx, []string{"b", "zzz"})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removed, got %d %v", n, err)
	}
	rows, _ := m.ListRows(ctx)
	if len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "c" {
		t.Fatalf("unexpected rows after delete: %+v", rows)
	}
	if _, ok := m.Row("b"); ok {
		t.Fatalf("b should be gone")
	}
}
