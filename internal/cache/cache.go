package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the registered caches.
type Manager struct {
	caches []Cleaner
}

func NewManager(caches ...Cleaner) *Manager {
	return &Manager{caches: caches}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Clean runs one cleanup pass and returns the number of removed entries.
func (m *Manager) Clean() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run cleans every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Clean(); n > 0 {
				slog.DebugContext(ctx, "Cache cleanup completed", "removed", n)
			}
		}
	}
}

// ReferenceCache memoizes reference lookups by owner, kind and
// case-folded name.
type ReferenceCache struct {
	lru *LRUCache[core.Reference]
}

func NewReferenceCache(size int, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{lru: NewLRUCache[core.Reference](size, ttl)}
}

func referenceKey(userID string, kind core.ReferenceKind, name string) string {
	return userID + "\x00" + string(kind) + "\x00" + core.NameKey(name)
}

func (c *ReferenceCache) Get(userID string, kind core.ReferenceKind, name string) (core.Reference, bool) {
	return c.lru.Get(referenceKey(userID, kind, name))
}

func (c *ReferenceCache) Put(ref core.Reference) {
	c.lru.Set(referenceKey(ref.UserID, ref.Kind, ref.Name), ref)
}

func (c *ReferenceCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *ReferenceCache) Size() int {
	return c.lru.Size()
}
