// Package watchcache keeps an in-memory approximation of one user's
// watchlist membership for zero-latency lookups. It is not a source of
// truth: it is rebuilt wholesale from the media list service on identity
// change and reconciled with ForceRefresh after a failed remote mutation.
package watchcache

import (
	"context"
	"sync"

	"reeltrack/models"
)

// ListStore is the slice of the media list service the cache depends on.
type ListStore interface {
	GetAllLists(ctx context.Context, userID string) *models.UserMediaDocument
	AddToList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error
	RemoveFromList(ctx context.Context, userID string, list models.ListName, key models.MediaKey) error
}

// Cache mirrors watchlist membership for a single user.
type Cache struct {
	store ListStore

	mu     sync.RWMutex
	userID string
	keys   map[models.MediaKey]struct{}
}

// NewCache returns an empty cache with no user bound.
func NewCache(store ListStore) *Cache {
	return &Cache{
		store: store,
		keys:  map[models.MediaKey]struct{}{},
	}
}

// SetUser binds the cache to an identity. A non-empty userID rebuilds the
// membership set from the store; an empty one clears it entirely.
func (c *Cache) SetUser(ctx context.Context, userID string) {
	if userID == "" {
		c.mu.Lock()
		c.userID = ""
		c.keys = map[models.MediaKey]struct{}{}
		c.mu.Unlock()
		return
	}
	c.Load(ctx, userID)
}

// Load replaces the entire membership set with the watchlist keys read from
// the store. A failed read shows up as an empty watchlist; the next refresh
// heals it.
func (c *Cache) Load(ctx context.Context, userID string) {
	doc := c.store.GetAllLists(ctx, userID)

	keys := make(map[models.MediaKey]struct{}, len(doc.Watchlist))
	for _, rec := range doc.Watchlist {
		keys[rec.Key()] = struct{}{}
	}

	c.mu.Lock()
	c.userID = userID
	c.keys = keys
	c.mu.Unlock()
}

// ForceRefresh re-reads the watchlist for the current identity. Used after a
// failed remote mutation so the cache converges on the store instead of
// staying in a hand-reverted state.
func (c *Cache) ForceRefresh(ctx context.Context) {
	c.mu.RLock()
	userID := c.userID
	c.mu.RUnlock()

	if userID == "" {
		return
	}
	c.Load(ctx, userID)
}

// Has reports current believed membership. Never touches the store.
func (c *Cache) Has(key models.MediaKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.keys[key]
	return ok
}

// MarkPresent records key as in the watchlist. Local only.
func (c *Cache) MarkPresent(key models.MediaKey) {
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
}

// MarkAbsent records key as not in the watchlist. Local only.
func (c *Cache) MarkAbsent(key models.MediaKey) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

// Toggle flips watchlist membership for record's title: the local set is
// mutated first so the UI reads the new state immediately, then the remote
// mutation is issued. On remote failure the local mutation is inverted and
// the error returned. Returns the membership state the toggle ended on.
//
// The compensation is best-effort: if the remote call timed out after
// committing, local and remote diverge until the next Load or ForceRefresh.
func (c *Cache) Toggle(ctx context.Context, record models.MediaRecord) (bool, error) {
	c.mu.RLock()
	userID := c.userID
	c.mu.RUnlock()

	key := record.Key()
	wasPresent := c.Has(key)

	var err error
	if wasPresent {
		err = optimistic(
			func() { c.MarkAbsent(key) },
			func() { c.MarkPresent(key) },
			func() error {
				return c.store.RemoveFromList(ctx, userID, models.ListWatchlist, key)
			},
		)
	} else {
		err = optimistic(
			func() { c.MarkPresent(key) },
			func() { c.MarkAbsent(key) },
			func() error {
				return c.store.AddToList(ctx, userID, models.ListWatchlist, record)
			},
		)
	}

	if err != nil {
		return wasPresent, err
	}
	return !wasPresent, nil
}

// optimistic applies a local mutation, attempts the remote call, and inverts
// the local mutation when the remote call fails.
func optimistic(apply, invert func(), attempt func() error) error {
	apply()
	if err := attempt(); err != nil {
		invert()
		return err
	}
	return nil
}
