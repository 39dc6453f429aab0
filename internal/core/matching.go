package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/olyamironova/trading-venue/internal/domain"
)

// SubmitOrderRequest is the validated boundary type for order admission.
type SubmitOrderRequest struct {
	MarketID    string
	TraderID    string
	Side        domain.Side
	Type        domain.OrderType
	TimeInForce domain.TimeInForce
	Price       *domain.Amount
	Quantity    domain.Amount
}

// SubmitResult carries the finalized incoming order and the trades it
// produced, in execution order.
type SubmitResult struct {
	Order  domain.Order
	Trades []domain.Trade
}

// SubmitOrder admits an order, matches it against the opposite side of
// the book under price-time priority and resolves the residual per
// order type and time-in-force. The whole match cycle runs under the
// market lock, so two submits on one market can never interleave.
func (e *Engine) SubmitOrder(ctx context.Context, req SubmitOrderRequest, actor domain.Actor) (*SubmitResult, error) {
	ms, err := e.marketState(req.MarketID)
	if err != nil {
		return nil, err
	}
	if err := validateSubmit(&req); err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.market.Status != domain.MarketActive {
		return nil, fmt.Errorf("%w: market %s is %s", domain.ErrMarketNotActive, req.MarketID, ms.market.Status)
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		MarketID:    req.MarketID,
		TraderID:    req.TraderID,
		Side:        req.Side,
		Type:        req.Type,
		TimeInForce: req.TimeInForce,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Remaining:   req.Quantity,
		Status:      domain.Open,
		CreatedAt:   time.Now(),
		Sequence:    e.seq.Add(1),
	}
	e.mu.Lock()
	e.orders[order.ID] = order
	e.mu.Unlock()
	ms.orderIDs = append(ms.orderIDs, order.ID)

	e.enqueue(ctx, "Order", order.ID, "OrderPlaced", map[string]string{"orderId": order.ID})

	trades, makers, err := e.matchLocked(ctx, ms, order)
	if err != nil {
		return nil, err
	}

	switch {
	case order.Remaining.IsZero():
		order.Status = domain.Filled
	case order.Remaining.Cmp(order.Quantity) < 0:
		order.Status = domain.PartiallyFilled
	}

	if order.Type == domain.MarketOrder || order.TimeInForce == domain.IOC {
		// Unfilled remainder is discarded, never rested.
		if order.Remaining.IsPositive() {
			order.Status = domain.Cancelled
			order.Remaining = domain.ZeroAmount
		}
	} else if order.Remaining.IsPositive() {
		ms.book.add(order)
	}

	e.enqueue(ctx, "OrderBook", req.MarketID, "OrderBookUpdated", map[string]string{"marketId": req.MarketID})
	e.recordAudit(ctx, "Order", order.ID, "OrderPlaced", actor, nil, *order)

	if e.repo != nil {
		_ = e.repo.SaveExecution(ctx, order, makers, trades)
	}
	e.publishDepth(req.MarketID, e.snapshotLocked(ms, defaultDepth))

	result := &SubmitResult{Order: *order, Trades: make([]domain.Trade, 0, len(trades))}
	for _, t := range trades {
		result.Trades = append(result.Trades, *t)
	}
	return result, nil
}

// matchLocked walks the opposite book side in priority order, filling
// against every crossing resting order until the incoming order is done
// or the book stops crossing. Caller holds ms.mu.
func (e *Engine) matchLocked(ctx context.Context, ms *marketState, order *domain.Order) ([]*domain.Trade, []*domain.Order, error) {
	opp := ms.book.opposite(order.Side)
	var trades []*domain.Trade
	var makers []*domain.Order

	for opp.len() > 0 && order.Remaining.IsPositive() {
		entry := opp.entries[0]
		resting := e.orderByID(entry.orderID)
		if resting == nil || !resting.Live() || resting.Price == nil {
			// Stale book entry, evict and keep walking.
			opp.removeAt(0)
			continue
		}
		if !crosses(order, resting) {
			// Book is price-sorted; nothing further can cross either.
			break
		}

		qty := domain.MinAmount(order.Remaining, resting.Remaining)
		price := *resting.Price // resting side sets the execution price

		orderLeft, err := order.Remaining.Sub(qty)
		if err != nil {
			return nil, nil, err
		}
		restingLeft, err := resting.Remaining.Sub(qty)
		if err != nil {
			return nil, nil, err
		}
		order.Remaining = orderLeft
		resting.Remaining = restingLeft
		if resting.Remaining.IsZero() {
			resting.Status = domain.Filled
			opp.removeAt(0)
		} else {
			resting.Status = domain.PartiallyFilled
		}
		makers = append(makers, resting)

		trade := &domain.Trade{
			ID:         uuid.NewString(),
			MarketID:   ms.market.ID,
			Price:      price,
			Quantity:   qty,
			ExecutedAt: time.Now(),
		}
		if order.Side == domain.Buy {
			trade.BuyOrderID = order.ID
			trade.SellOrderID = resting.ID
		} else {
			trade.BuyOrderID = resting.ID
			trade.SellOrderID = order.ID
		}
		e.mu.Lock()
		e.trades[trade.ID] = trade
		e.mu.Unlock()
		ms.tradeIDs = append(ms.tradeIDs, trade.ID)
		trades = append(trades, trade)

		e.enqueue(ctx, "Trade", trade.ID, "TradeExecuted", *trade)
		e.enqueue(ctx, "Settlement", trade.ID, "SettlementRequested", buildSettlementIntent(trade, ms.market))
	}
	return trades, makers, nil
}

// crosses reports whether the incoming order can trade against the
// resting one. MARKET orders always cross; LIMIT orders cross when the
// incoming price meets or beats the resting price.
func crosses(incoming, resting *domain.Order) bool {
	if incoming.Type == domain.MarketOrder {
		return true
	}
	if incoming.Price == nil {
		return false
	}
	if incoming.Side == domain.Buy {
		return incoming.Price.Cmp(*resting.Price) >= 0
	}
	return incoming.Price.Cmp(*resting.Price) <= 0
}

func validateSubmit(req *SubmitOrderRequest) error {
	switch req.Side {
	case domain.Buy, domain.Sell:
	default:
		return fmt.Errorf("%w: invalid side %q", domain.ErrInvalidInput, req.Side)
	}
	switch req.Type {
	case domain.Limit:
		if req.Price == nil || !req.Price.IsPositive() {
			return fmt.Errorf("%w: limit order requires a positive price", domain.ErrInvalidInput)
		}
	case domain.MarketOrder:
		if req.Price != nil {
			return fmt.Errorf("%w: market order must not carry a price", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: invalid order type %q", domain.ErrInvalidInput, req.Type)
	}
	if req.TimeInForce == "" {
		req.TimeInForce = domain.GTC
	}
	switch req.TimeInForce {
	case domain.GTC, domain.IOC:
	default:
		return fmt.Errorf("%w: invalid time in force %q", domain.ErrInvalidInput, req.TimeInForce)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	return nil
}
