package core

import (
	"context"
	"testing"
	"time"

	"github.com/olyamironova/trading-venue/internal/adapter/in_memory"
	"github.com/olyamironova/trading-venue/internal/audit"
	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trader = domain.Actor{ID: "trader-1", Role: "TRADER"}
	ops    = domain.Actor{ID: "ops-1", Role: "OPS"}
)

func newTestMarket(t *testing.T, e *Engine) domain.Market {
	t.Helper()
	m, err := e.CreateMarket(context.Background(), "TOKEN-A", ops)
	require.NoError(t, err)
	return m
}

func submit(t *testing.T, e *Engine, marketID string, side domain.Side, typ domain.OrderType, price, qty string, tif domain.TimeInForce) *SubmitResult {
	t.Helper()
	req := SubmitOrderRequest{
		MarketID:    marketID,
		TraderID:    trader.ID,
		Side:        side,
		Type:        typ,
		TimeInForce: tif,
		Quantity:    domain.MustAmount(qty),
	}
	if price != "" {
		p := domain.MustAmount(price)
		req.Price = &p
	}
	res, err := e.SubmitOrder(context.Background(), req, trader)
	require.NoError(t, err)
	return res
}

func TestCreateMarket(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()

	m := newTestMarket(t, e)
	assert.Equal(t, domain.MarketActive, m.Status)
	assert.Equal(t, "TOKEN-A", m.InstrumentID)

	got, err := e.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = e.CreateMarket(ctx, "", ops)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.GetMarket(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Len(t, e.ListMarkets(ctx), 1)
}

func TestPauseResume(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	paused, err := e.PauseMarket(ctx, m.ID, ops)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketPaused, paused.Status)

	// Pausing again succeeds silently.
	paused, err = e.PauseMarket(ctx, m.ID, ops)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketPaused, paused.Status)

	req := SubmitOrderRequest{
		MarketID: m.ID,
		TraderID: trader.ID,
		Side:     domain.Buy,
		Type:     domain.MarketOrder,
		Quantity: domain.MustAmount("1"),
	}
	_, err = e.SubmitOrder(ctx, req, trader)
	assert.ErrorIs(t, err, domain.ErrMarketNotActive)

	resumed, err := e.ResumeMarket(ctx, m.ID, ops)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketActive, resumed.Status)

	_, err = e.PauseMarket(ctx, "missing", ops)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitValidation(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	price := domain.MustAmount("100")
	zero := domain.ZeroAmount
	cases := map[string]SubmitOrderRequest{
		"bad side":             {MarketID: m.ID, Side: "LONG", Type: domain.Limit, Price: &price, Quantity: domain.MustAmount("1")},
		"bad type":             {MarketID: m.ID, Side: domain.Buy, Type: "STOP", Quantity: domain.MustAmount("1")},
		"bad tif":              {MarketID: m.ID, Side: domain.Buy, Type: domain.Limit, Price: &price, Quantity: domain.MustAmount("1"), TimeInForce: "FOK"},
		"limit without price":  {MarketID: m.ID, Side: domain.Buy, Type: domain.Limit, Quantity: domain.MustAmount("1")},
		"limit with zero price": {MarketID: m.ID, Side: domain.Buy, Type: domain.Limit, Price: &zero, Quantity: domain.MustAmount("1")},
		"market with price":    {MarketID: m.ID, Side: domain.Buy, Type: domain.MarketOrder, Price: &price, Quantity: domain.MustAmount("1")},
		"zero quantity":        {MarketID: m.ID, Side: domain.Buy, Type: domain.Limit, Price: &price, Quantity: domain.ZeroAmount},
	}
	for name, req := range cases {
		_, err := e.SubmitOrder(ctx, req, trader)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}

	_, err := e.SubmitOrder(ctx, SubmitOrderRequest{
		MarketID: "missing",
		Side:     domain.Buy,
		Type:     domain.MarketOrder,
		Quantity: domain.MustAmount("1"),
	}, trader)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLimitOrderRestsWhenBookEmpty(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)
	assert.Empty(t, res.Trades)
	assert.Equal(t, domain.Open, res.Order.Status)
	assert.Equal(t, "5", res.Order.Remaining.String())

	snap, err := e.GetOrderbook(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, res.Order.ID, snap.Bids[0].ID)
	assert.Empty(t, snap.Asks)
}

func TestMarketOrderWalksBookInPriceTimeOrder(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	t1 := submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "10", domain.GTC)
	t2 := submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "10", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.MarketOrder, "", "15", domain.IOC)
	require.Len(t, res.Trades, 2)

	assert.Equal(t, t1.Order.ID, res.Trades[0].SellOrderID)
	assert.Equal(t, "10", res.Trades[0].Quantity.String())
	assert.Equal(t, "100", res.Trades[0].Price.String())

	assert.Equal(t, t2.Order.ID, res.Trades[1].SellOrderID)
	assert.Equal(t, "5", res.Trades[1].Quantity.String())
	assert.Equal(t, "100", res.Trades[1].Price.String())

	first, err := e.GetOrder(ctx, t1.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Filled, first.Status)
	assert.Equal(t, "0", first.Remaining.String())

	second, err := e.GetOrder(ctx, t2.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PartiallyFilled, second.Status)
	assert.Equal(t, "5", second.Remaining.String())

	assert.Equal(t, domain.Filled, res.Order.Status)
	assert.Equal(t, "0", res.Order.Remaining.String())
}

func TestMarketOrderTakesBestPriceFirst(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "90", "5", domain.GTC)
	submit(t, e, m.ID, domain.Sell, domain.Limit, "95", "5", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.MarketOrder, "", "5", domain.GTC)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "90", res.Trades[0].Price.String())
	assert.Equal(t, domain.Filled, res.Order.Status)
}

func TestIOCLimitCancelsUnfilledRemainder(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "2", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.IOC)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "2", res.Trades[0].Quantity.String())
	assert.Equal(t, "100", res.Trades[0].Price.String())

	assert.Equal(t, domain.Cancelled, res.Order.Status)
	assert.Equal(t, "0", res.Order.Remaining.String())

	snap, err := e.GetOrderbook(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

func TestTradeExecutesAtRestingPrice(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "110", "5", domain.GTC)
	require.Len(t, res.Trades, 1)
	// The order already in the book sets the execution price.
	assert.Equal(t, "100", res.Trades[0].Price.String())
}

func TestMarketOrderNeverRests(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	res := submit(t, e, m.ID, domain.Buy, domain.MarketOrder, "", "5", domain.GTC)
	assert.Empty(t, res.Trades)
	assert.Equal(t, domain.Cancelled, res.Order.Status)
	assert.Equal(t, "0", res.Order.Remaining.String())

	snap, err := e.GetOrderbook(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)
}

func TestPartialFillRestsRemainder(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "4", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "10", domain.GTC)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, domain.PartiallyFilled, res.Order.Status)
	assert.Equal(t, "6", res.Order.Remaining.String())

	snap, err := e.GetOrderbook(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, res.Order.ID, snap.Bids[0].ID)
	assert.Equal(t, "6", snap.Bids[0].Remaining.String())
}

func TestMatchingStopsAtFirstNonCrossingPrice(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	far := submit(t, e, m.ID, domain.Sell, domain.Limit, "105", "5", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "102", "10", domain.GTC)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "100", res.Trades[0].Price.String())
	assert.Equal(t, domain.PartiallyFilled, res.Order.Status)

	untouched, err := e.GetOrder(ctx, far.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Open, untouched.Status)
	assert.Equal(t, "5", untouched.Remaining.String())
}

func TestFillQuantityInvariant(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "3", domain.GTC)
	submit(t, e, m.ID, domain.Sell, domain.Limit, "101", "3", domain.GTC)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "101", "10", domain.GTC)
	total := domain.ZeroAmount
	for _, tr := range res.Trades {
		total = total.Add(tr.Quantity)
	}
	assert.Equal(t, "6", total.String())
	assert.True(t, total.Cmp(res.Order.Quantity) < 0)
	assert.NotEqual(t, domain.Filled, res.Order.Status)

	res2 := submit(t, e, m.ID, domain.Sell, domain.Limit, "101", "4", domain.GTC)
	total2 := domain.ZeroAmount
	for _, tr := range res2.Trades {
		total2 = total2.Add(tr.Quantity)
	}
	assert.True(t, total2.Equal(res2.Order.Quantity))
	assert.Equal(t, domain.Filled, res2.Order.Status)
}

func TestCancelOrder(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)

	cancelled, err := e.CancelOrder(ctx, res.Order.ID, trader)
	require.NoError(t, err)
	assert.Equal(t, domain.Cancelled, cancelled.Status)
	assert.Equal(t, "0", cancelled.Remaining.String())

	snap, err := e.GetOrderbook(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)

	// Cancelling a terminal order is rejected, not silently absorbed.
	_, err = e.CancelOrder(ctx, res.Order.ID, trader)
	assert.ErrorIs(t, err, domain.ErrOrderClosed)

	_, err = e.CancelOrder(ctx, "missing", trader)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelFilledOrderRejected(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	resting := submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)

	filled, err := e.GetOrder(ctx, resting.Order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Filled, filled.Status)

	_, err = e.CancelOrder(ctx, resting.Order.ID, trader)
	assert.ErrorIs(t, err, domain.ErrOrderClosed)
}

func TestCancelledRestingOrderEvictedDuringMatch(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	best := submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	next := submit(t, e, m.ID, domain.Sell, domain.Limit, "101", "5", domain.GTC)

	_, err := e.CancelOrder(ctx, best.Order.ID, trader)
	require.NoError(t, err)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "101", "5", domain.GTC)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, next.Order.ID, res.Trades[0].SellOrderID)
	assert.Equal(t, "101", res.Trades[0].Price.String())
}

func TestQueries(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)
	require.Len(t, res.Trades, 1)

	orders, err := e.ListOrders(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	trades, err := e.ListTrades(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got, err := e.GetTrade(ctx, trades[0].ID)
	require.NoError(t, err)
	assert.Equal(t, trades[0], got)

	_, err = e.GetTrade(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.ListOrders(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.GetOrderbook(ctx, "missing", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderbookDepthParameter(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Buy, domain.Limit, "98", "1", domain.GTC)
	submit(t, e, m.ID, domain.Buy, domain.Limit, "99", "1", domain.GTC)
	submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "1", domain.GTC)

	snap, err := e.GetOrderbook(ctx, m.ID, 2)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, "100", snap.Bids[0].Price.String())
	assert.Equal(t, "99", snap.Bids[1].Price.String())
}

func TestOutboxEventSequence(t *testing.T) {
	events := outbox.NewStore()
	e := NewEngine(nil, nil, nil, events)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)
	require.Len(t, res.Trades, 1)

	var types []string
	for _, ev := range events.List() {
		types = append(types, ev.EventType)
	}
	assert.Equal(t, []string{
		"OrderPlaced", "OrderBookUpdated",
		"OrderPlaced", "TradeExecuted", "SettlementRequested", "OrderBookUpdated",
	}, types)

	cancelled := submit(t, e, m.ID, domain.Buy, domain.Limit, "90", "1", domain.GTC)
	_, err := e.CancelOrder(ctx, cancelled.Order.ID, trader)
	require.NoError(t, err)
	list := events.List()
	assert.Equal(t, "OrderCancelled", list[len(list)-1].EventType)
}

func TestSettlementIntentPerTrade(t *testing.T) {
	events := outbox.NewStore()
	e := NewEngine(nil, nil, nil, events)
	m := newTestMarket(t, e)

	resting := submit(t, e, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)
	require.Len(t, res.Trades, 1)

	var intent domain.SettlementIntent
	found := false
	for _, ev := range events.List() {
		if ev.EventType == "SettlementRequested" {
			intent, found = ev.Payload.(domain.SettlementIntent), true
		}
	}
	require.True(t, found)
	assert.Equal(t, "TOKEN-A", intent.InstrumentID)
	assert.Equal(t, resting.Order.ID, intent.SellerHolderRef)
	assert.Equal(t, res.Order.ID, intent.BuyerHolderRef)
	assert.Equal(t, "5", intent.Quantity.String())
	assert.Equal(t, res.Trades[0].ID, intent.TradeID)
	assert.Equal(t, "pi_"+res.Trades[0].ID, intent.PaymentRef)
}

func TestAuditTrail(t *testing.T) {
	log := audit.NewLogger()
	e := NewEngine(nil, nil, log, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	res := submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)
	_, err := e.CancelOrder(ctx, res.Order.ID, trader)
	require.NoError(t, err)

	entries := log.List()
	require.Len(t, entries, 3)

	assert.Equal(t, "MarketCreated", entries[0].Action)
	assert.Equal(t, ops.ID, entries[0].ActorID)
	assert.Empty(t, entries[0].BeforeHash)
	assert.NotEmpty(t, entries[0].AfterHash)

	assert.Equal(t, "OrderPlaced", entries[1].Action)
	assert.Equal(t, "OrderCancelled", entries[2].Action)
	assert.NotEmpty(t, entries[2].BeforeHash)
	assert.NotEmpty(t, entries[2].AfterHash)
	assert.NotEqual(t, entries[2].BeforeHash, entries[2].AfterHash)
}

func TestRestoreFromRepository(t *testing.T) {
	repo := in_memory.NewMemoryRepo()
	ctx := context.Background()

	seed := NewEngine(repo, nil, nil, nil)
	m := newTestMarket(t, seed)
	resting := submit(t, seed, m.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	submit(t, seed, m.ID, domain.Sell, domain.Limit, "95", "5", domain.GTC)

	restored := NewEngine(repo, nil, nil, nil)
	require.NoError(t, restored.Restore(ctx))

	snap, err := restored.GetOrderbook(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, snap.Asks, 2)
	assert.Equal(t, "95", snap.Asks[0].Price.String())
	assert.Equal(t, "100", snap.Asks[1].Price.String())

	res := submit(t, restored, m.ID, domain.Buy, domain.MarketOrder, "", "5", domain.GTC)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "95", res.Trades[0].Price.String())
	_ = resting
}

func TestDepthPublishedToCache(t *testing.T) {
	bookCache := in_memory.NewMemoryCache()
	e := NewEngine(nil, bookCache, nil, nil)
	ctx := context.Background()
	m := newTestMarket(t, e)

	submit(t, e, m.ID, domain.Buy, domain.Limit, "100", "5", domain.GTC)

	// Cache publication is asynchronous and best effort.
	require.Eventually(t, func() bool {
		snap, err := bookCache.GetOrderbook(ctx, m.ID)
		return err == nil && snap != nil && len(snap.Bids) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMarketsAreIndependent(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil)
	ctx := context.Background()
	m1 := newTestMarket(t, e)
	m2, err := e.CreateMarket(ctx, "TOKEN-B", ops)
	require.NoError(t, err)

	submit(t, e, m1.ID, domain.Sell, domain.Limit, "100", "5", domain.GTC)
	res := submit(t, e, m2.ID, domain.Buy, domain.MarketOrder, "", "5", domain.GTC)

	// Nothing on market B to match against.
	assert.Empty(t, res.Trades)
	snap, err := e.GetOrderbook(ctx, m1.ID, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Asks, 1)
}
