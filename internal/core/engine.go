package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
)

// defaultDepth matches the book depth served when the caller does not
// ask for a specific number of levels.
const defaultDepth = 5

// Engine implements the venue core: market registry, order/trade store,
// per-market order books and the matching algorithm. All collaborators
// are optional; a nil repository/cache/audit/outbox simply skips that
// concern, which keeps the engine constructible in isolation for tests.
type Engine struct {
	repo   port.Repository
	cache  port.Cache
	audit  port.Audit
	outbox port.Outbox

	// mu guards the registry maps. Per-market state is serialized by the
	// market's own mutex; mu may be taken while holding a market mutex,
	// never the other way around.
	mu        sync.RWMutex
	markets   map[string]*marketState
	marketIDs []string
	orders    map[string]*domain.Order
	trades    map[string]*domain.Trade

	seq atomic.Uint64
}

// marketState bundles everything serialized by one market lock: the
// market record, its book and the submission-ordered id lists.
type marketState struct {
	mu       sync.Mutex
	market   *domain.Market
	book     *orderBook
	orderIDs []string
	tradeIDs []string
}

func NewEngine(repo port.Repository, cache port.Cache, audit port.Audit, outbox port.Outbox) *Engine {
	return &Engine{
		repo:    repo,
		cache:   cache,
		audit:   audit,
		outbox:  outbox,
		markets: make(map[string]*marketState),
		orders:  make(map[string]*domain.Order),
		trades:  make(map[string]*domain.Trade),
	}
}

// Restore rebuilds markets and resting orders from the repository, used
// on startup. The repository returns open orders FIFO, so re-inserting
// them preserves price-time priority.
func (e *Engine) Restore(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	markets, err := e.repo.LoadMarkets(ctx)
	if err != nil {
		return fmt.Errorf("restore markets: %w", err)
	}
	for _, m := range markets {
		cp := *m
		ms := &marketState{market: &cp, book: newOrderBook(cp.ID)}
		e.mu.Lock()
		e.markets[cp.ID] = ms
		e.marketIDs = append(e.marketIDs, cp.ID)
		e.mu.Unlock()

		orders, err := e.repo.LoadOpenOrders(ctx, cp.ID)
		if err != nil {
			return fmt.Errorf("restore orders for market %s: %w", cp.ID, err)
		}
		for _, o := range orders {
			oc := *o
			oc.Sequence = e.seq.Add(1)
			e.mu.Lock()
			e.orders[oc.ID] = &oc
			e.mu.Unlock()
			ms.orderIDs = append(ms.orderIDs, oc.ID)
			ms.book.add(&oc)
		}
	}
	return nil
}

// CreateMarket allocates a new ACTIVE market with an empty order book.
func (e *Engine) CreateMarket(ctx context.Context, instrumentID string, actor domain.Actor) (domain.Market, error) {
	if instrumentID == "" {
		return domain.Market{}, fmt.Errorf("%w: instrument id required", domain.ErrInvalidInput)
	}
	m := &domain.Market{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		Status:       domain.MarketActive,
	}
	ms := &marketState{market: m, book: newOrderBook(m.ID)}

	e.mu.Lock()
	e.markets[m.ID] = ms
	e.marketIDs = append(e.marketIDs, m.ID)
	e.mu.Unlock()

	e.recordAudit(ctx, "Market", m.ID, "MarketCreated", actor, nil, *m)
	if e.repo != nil {
		_ = e.repo.SaveMarket(ctx, m)
	}
	return *m, nil
}

// PauseMarket halts submissions. Pausing an already paused market
// succeeds silently.
func (e *Engine) PauseMarket(ctx context.Context, marketID string, actor domain.Actor) (domain.Market, error) {
	return e.setMarketStatus(ctx, marketID, domain.MarketPaused, "MarketPaused", actor)
}

// ResumeMarket re-enables submissions. Idempotent like PauseMarket.
func (e *Engine) ResumeMarket(ctx context.Context, marketID string, actor domain.Actor) (domain.Market, error) {
	return e.setMarketStatus(ctx, marketID, domain.MarketActive, "MarketResumed", actor)
}

func (e *Engine) setMarketStatus(ctx context.Context, marketID string, status domain.MarketStatus, action string, actor domain.Actor) (domain.Market, error) {
	ms, err := e.marketState(marketID)
	if err != nil {
		return domain.Market{}, err
	}
	ms.mu.Lock()
	before := *ms.market
	ms.market.Status = status
	after := *ms.market
	ms.mu.Unlock()

	e.recordAudit(ctx, "Market", marketID, action, actor, before, after)
	if e.repo != nil {
		_ = e.repo.SaveMarket(ctx, &after)
	}
	return after, nil
}

// GetMarket returns a copy of the market record.
func (e *Engine) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	ms, err := e.marketState(marketID)
	if err != nil {
		return domain.Market{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return *ms.market, nil
}

// ListMarkets returns all markets in creation order.
func (e *Engine) ListMarkets(ctx context.Context) []domain.Market {
	e.mu.RLock()
	ids := make([]string, len(e.marketIDs))
	copy(ids, e.marketIDs)
	e.mu.RUnlock()

	out := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		if m, err := e.GetMarket(ctx, id); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// CancelOrder cancels a live order, removing it from the book if
// resting. Cancelling a FILLED or CANCELLED order is rejected with
// ErrOrderClosed.
func (e *Engine) CancelOrder(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	e.mu.RLock()
	o, ok := e.orders[orderID]
	e.mu.RUnlock()
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	ms, err := e.marketState(o.MarketID)
	if err != nil {
		return domain.Order{}, err
	}

	ms.mu.Lock()
	if o.Terminal() {
		ms.mu.Unlock()
		return domain.Order{}, fmt.Errorf("%w: order %s is %s", domain.ErrOrderClosed, orderID, o.Status)
	}
	before := *o
	o.Status = domain.Cancelled
	o.Remaining = domain.ZeroAmount
	ms.book.remove(o)
	after := *o
	snap := e.snapshotLocked(ms, defaultDepth)
	ms.mu.Unlock()

	e.recordAudit(ctx, "Order", orderID, "OrderCancelled", actor, before, after)
	e.enqueue(ctx, "Order", orderID, "OrderCancelled", map[string]string{"orderId": orderID})
	if e.repo != nil {
		_ = e.repo.SaveOrder(ctx, &after)
	}
	e.publishDepth(o.MarketID, snap)
	return after, nil
}

// GetOrder returns a copy of an order.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	e.mu.RLock()
	o, ok := e.orders[orderID]
	e.mu.RUnlock()
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	ms, err := e.marketState(o.MarketID)
	if err != nil {
		return domain.Order{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return *o, nil
}

// GetTrade returns a copy of a trade. Trades are immutable, so the
// registry lock alone is enough.
func (e *Engine) GetTrade(ctx context.Context, tradeID string) (domain.Trade, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.trades[tradeID]
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: trade %s", domain.ErrNotFound, tradeID)
	}
	return *t, nil
}

// ListOrders returns every order submitted to a market, oldest first.
func (e *Engine) ListOrders(ctx context.Context, marketID string) ([]domain.Order, error) {
	ms, err := e.marketState(marketID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]domain.Order, 0, len(ms.orderIDs))
	e.mu.RLock()
	for _, id := range ms.orderIDs {
		if o, ok := e.orders[id]; ok {
			out = append(out, *o)
		}
	}
	e.mu.RUnlock()
	return out, nil
}

// ListTrades returns every trade executed on a market, oldest first.
func (e *Engine) ListTrades(ctx context.Context, marketID string) ([]domain.Trade, error) {
	ms, err := e.marketState(marketID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	out := make([]domain.Trade, 0, len(ms.tradeIDs))
	e.mu.RLock()
	for _, id := range ms.tradeIDs {
		if t, ok := e.trades[id]; ok {
			out = append(out, *t)
		}
	}
	e.mu.RUnlock()
	return out, nil
}

// GetOrderbook returns the top depth levels of each side, in matching
// priority order. depth <= 0 returns the whole book.
func (e *Engine) GetOrderbook(ctx context.Context, marketID string, depth int) (*domain.OrderbookSnapshot, error) {
	ms, err := e.marketState(marketID)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return e.snapshotLocked(ms, depth), nil
}

// snapshotLocked builds a depth snapshot; caller holds ms.mu.
func (e *Engine) snapshotLocked(ms *marketState, depth int) *domain.OrderbookSnapshot {
	snap := &domain.OrderbookSnapshot{
		MarketID:  ms.market.ID,
		Bids:      []domain.Order{},
		Asks:      []domain.Order{},
		Timestamp: time.Now(),
	}
	e.mu.RLock()
	for _, id := range ms.book.bids.ids(depth) {
		if o, ok := e.orders[id]; ok {
			snap.Bids = append(snap.Bids, *o)
		}
	}
	for _, id := range ms.book.asks.ids(depth) {
		if o, ok := e.orders[id]; ok {
			snap.Asks = append(snap.Asks, *o)
		}
	}
	e.mu.RUnlock()
	return snap
}

// publishDepth writes a top-of-book snapshot through to the cache so
// external readers never query the engine directly. Runs detached and
// best effort; a slow cache never blocks matching.
func (e *Engine) publishDepth(marketID string, snap *domain.OrderbookSnapshot) {
	if e.cache == nil || snap == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = e.cache.SetOrderbook(ctx, marketID, snap)
	}()
}

// BookDepth reports the number of resting orders per side, for metrics.
func (e *Engine) BookDepth(marketID string) (bids, asks int) {
	ms, err := e.marketState(marketID)
	if err != nil {
		return 0, 0
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.book.bids.len(), ms.book.asks.len()
}

func (e *Engine) marketState(marketID string) (*marketState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ms, ok := e.markets[marketID]
	if !ok {
		return nil, fmt.Errorf("%w: market %s", domain.ErrNotFound, marketID)
	}
	return ms, nil
}

func (e *Engine) orderByID(id string) *domain.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.orders[id]
}

func (e *Engine) recordAudit(ctx context.Context, aggregateType, aggregateID, action string, actor domain.Actor, before, after any) {
	if e.audit == nil {
		return
	}
	e.audit.Record(ctx, aggregateType, aggregateID, action, actor, before, after)
}

func (e *Engine) enqueue(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) {
	if e.outbox == nil {
		return
	}
	e.outbox.Enqueue(ctx, aggregateType, aggregateID, eventType, payload)
}
