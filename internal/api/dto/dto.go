package dto

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderType string

const (
	Limit       OrderType = "LIMIT"
	MarketOrder OrderType = "MARKET"
)

type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
)

type CreateMarketRequest struct {
	InstrumentID string `json:"instrument_id" binding:"required"`
}

type Market struct {
	ID           string `json:"id"`
	InstrumentID string `json:"instrument_id"`
	Status       string `json:"status"`
}

// SubmitOrderRequest carries exact amounts as decimal strings; they are
// parsed and validated before reaching the engine.
type SubmitOrderRequest struct {
	TraderID    string      `json:"trader_id,omitempty"`
	Side        Side        `json:"side" binding:"required"`
	Type        OrderType   `json:"type" binding:"required"`
	Price       string      `json:"price,omitempty"` // required for LIMIT
	Quantity    string      `json:"quantity" binding:"required"`
	TimeInForce TimeInForce `json:"time_in_force,omitempty"` // defaults to GTC
}

type SubmitOrderResponse struct {
	Order  Order   `json:"order"`
	Trades []Trade `json:"trades"`
}

type Order struct {
	ID          string    `json:"id"`
	MarketID    string    `json:"market_id"`
	TraderID    string    `json:"trader_id"`
	Side        Side      `json:"side"`
	Type        OrderType `json:"type"`
	TimeInForce string    `json:"time_in_force"`
	Price       string    `json:"price,omitempty"`
	Quantity    string    `json:"quantity"`
	Remaining   string    `json:"remaining"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Trade struct {
	ID          string    `json:"id"`
	MarketID    string    `json:"market_id"`
	BuyOrderID  string    `json:"buy_order_id"`
	SellOrderID string    `json:"sell_order_id"`
	Price       string    `json:"price"`
	Quantity    string    `json:"quantity"`
	ExecutedAt  time.Time `json:"executed_at"`
}

type GetOrderbookResponse struct {
	Bids      []Order   `json:"bids"`
	Asks      []Order   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}
