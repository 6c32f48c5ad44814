// Package book caches the latest order book snapshot per traded asset.
package book

import (
	"sync"

	"github.com/rewired-gh/polyflip/internal/models"
)

type sides struct {
	bids []models.PriceLevel
	asks []models.PriceLevel
}

// Cache holds the most recent book-replace event per asset. Replacement is
// wholesale and last-writer-wins: no merging, no consistency checks against
// the previous snapshot.
type Cache struct {
	mu    sync.RWMutex
	books map[string]*sides
}

// NewCache creates an empty order book cache.
func NewCache() *Cache {
	return &Cache{books: make(map[string]*sides)}
}

// ApplyReplace overwrites both sides for the asset. Entries are created
// lazily on the first event for an asset and kept until the cache is dropped
// with the session.
func (c *Cache) ApplyReplace(assetID string, bids, asks []models.PriceLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[assetID] = &sides{bids: bids, asks: asks}
}

// BestBid returns the bid price for the asset, or ok=false when the asset has
// no cached book yet or its bid side is empty. The feed delivers levels with
// the touch last, so the final element is read as best.
func (c *Cache) BestBid(assetID string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, exists := c.books[assetID]
	if !exists || len(b.bids) == 0 {
		return 0, false
	}
	return b.bids[len(b.bids)-1].Price, true
}

// BestAsk returns the ask price for the asset, or ok=false when the asset has
// no cached book yet or its ask side is empty.
func (c *Cache) BestAsk(assetID string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, exists := c.books[assetID]
	if !exists || len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[len(b.asks)-1].Price, true
}

// Len returns the number of assets with a cached book.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}
