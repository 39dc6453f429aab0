package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
)

var _ port.Cache = (*MemoryCache)(nil)

// MemoryCache is the in-process stand-in for the redis cache.
type MemoryCache struct {
	mu    sync.RWMutex
	books map[string]*domain.OrderbookSnapshot
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{books: make(map[string]*domain.OrderbookSnapshot)}
}

func (c *MemoryCache) SetOrderbook(ctx context.Context, marketID string, ob *domain.OrderbookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[marketID] = ob.DeepCopy()
	return nil
}

func (c *MemoryCache) GetOrderbook(ctx context.Context, marketID string) (*domain.OrderbookSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ob, ok := c.books[marketID]
	if !ok {
		return nil, nil
	}
	return ob.DeepCopy(), nil
}
