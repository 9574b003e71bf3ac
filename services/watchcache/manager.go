package watchcache

import (
	"context"
	"sync"
)

// Manager hands out one Cache per signed-in user. Caches are created and
// loaded on first use and dropped on logout.
type Manager struct {
	store ListStore

	mu     sync.Mutex
	caches map[string]*Cache
}

// NewManager creates a cache manager over the given store.
func NewManager(store ListStore) *Manager {
	return &Manager{
		store:  store,
		caches: map[string]*Cache{},
	}
}

// ForUser returns the cache for userID, creating and loading it when the
// user has none yet. A cache is only published once loaded, so concurrent
// callers never observe the empty pre-load membership set.
func (m *Manager) ForUser(ctx context.Context, userID string) *Cache {
	m.mu.Lock()
	cache, ok := m.caches[userID]
	m.mu.Unlock()
	if ok {
		return cache
	}

	cache = NewCache(m.store)
	cache.Load(ctx, userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.caches[userID]; ok {
		// Another caller loaded first; keep the published one.
		return existing
	}
	m.caches[userID] = cache
	return cache
}

// Drop discards the cache for userID, mirroring identity loss.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	delete(m.caches, userID)
	m.mu.Unlock()
}
