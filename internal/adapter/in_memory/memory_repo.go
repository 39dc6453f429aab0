package in_memory

import (
	"context"
	"sort"
	"sync"

	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

// MemoryRepo mirrors the pg adapter for tests and for running the venue
// without a database.
type MemoryRepo struct {
	mu      sync.Mutex
	markets map[string]*domain.Market
	orders  map[string]*domain.Order
	trades  map[string]*domain.Trade
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		markets: make(map[string]*domain.Market),
		orders:  make(map[string]*domain.Order),
		trades:  make(map[string]*domain.Trade),
	}
}

func (r *MemoryRepo) SaveMarket(ctx context.Context, m *domain.Market) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.markets[m.ID] = &cp
	return nil
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryRepo) SaveExecution(ctx context.Context, taker *domain.Order, makers []*domain.Order, trades []*domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tc := *taker
	r.orders[taker.ID] = &tc
	for _, m := range makers {
		cp := *m
		r.orders[m.ID] = &cp
	}
	for _, t := range trades {
		cp := *t
		r.trades[t.ID] = &cp
	}
	return nil
}

func (r *MemoryRepo) LoadMarkets(ctx context.Context) ([]*domain.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Market
	for _, m := range r.markets {
		cp := *m
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *MemoryRepo) LoadOpenOrders(ctx context.Context, marketID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.MarketID == marketID && o.Live() {
			cp := *o
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].Sequence < res[j].Sequence
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}
