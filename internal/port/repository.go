package port

import (
	"context"

	"github.com/olyamironova/trading-venue/internal/domain"
)

// Repository is the optional write-through store behind the engine. The
// engine stays authoritative in memory; repository failures never fail
// matching (durability is explicitly out of scope).
type Repository interface {
	SaveMarket(ctx context.Context, m *domain.Market) error
	SaveOrder(ctx context.Context, o *domain.Order) error
	// SaveExecution persists the full outcome of one submit call (the
	// taker, every touched maker and every trade) atomically.
	SaveExecution(ctx context.Context, taker *domain.Order, makers []*domain.Order, trades []*domain.Trade) error
	LoadMarkets(ctx context.Context) ([]*domain.Market, error)
	// LoadOpenOrders returns live orders for a market ordered by
	// created_at ASC (FIFO), used to rebuild books on startup.
	LoadOpenOrders(ctx context.Context, marketID string) ([]*domain.Order, error)
}
