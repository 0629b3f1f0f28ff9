package cache

import (
	"testing"
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a should survive, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("a", "x")
	c.Set("b", "y")

	now = now.Add(2 * time.Minute)
	c.Set("c", "z")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("c should still be cached")
	}
}

func TestLRUCacheDeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if c.Size() != 1 {
		t.Fatalf("non-positive size should keep one entry, got %d", c.Size())
	}
	c.Delete("b")
	if c.Size() != 0 {
		t.Fatalf("expected empty cache")
	}
	c.Set("a", 1)
	c.Purge()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("purge should drop everything")
	}
}

func TestReferenceCacheIgnoresCase(t *testing.T) {
	c := NewReferenceCache(10, time.Minute)
	ref := core.Reference{ID: "r1", UserID: "u1", Kind: core.RefCategory, Name: "Groceries"}
	c.Put(ref)

	got, ok := c.Get("u1", core.RefCategory, "  GROCERIES ")
	if !ok || got.ID != "r1" {
		t.Fatalf("expected cached reference, got %+v %v", got, ok)
	}
	c.Put(core.Reference{ID: "r2", UserID: "u1", Kind: core.RefCategory, Name: "Alimentação"})
	if got, ok := c.Get("u1", core.RefCategory, "ALIMENTAÇÃO"); !ok || got.ID != "r2" {
		t.Fatalf("accented names should fold, got %+v %v", got, ok)
	}
	if _, ok := c.Get("u2", core.RefCategory, "groceries"); ok {
		t.Fatalf("other users must not share entries")
	}
	if _, ok := c.Get("u1", core.RefPayer, "groceries"); ok {
		t.Fatalf("other kinds must not share entries")
	}

	m := NewManager(c)
	if n := m.Clean(); n != 0 {
		t.Fatalf("nothing should expire yet, removed %d", n)
	}
}
