package port

import (
	"context"

	"github.com/olyamironova/trading-venue/internal/domain"
)

// Cache publishes order book depth snapshots for external readers.
// The engine writes through after every book mutation and never reads
// its own cache on the serving path.
type Cache interface {
	SetOrderbook(ctx context.Context, marketID string, ob *domain.OrderbookSnapshot) error
	GetOrderbook(ctx context.Context, marketID string) (*domain.OrderbookSnapshot, error)
}
