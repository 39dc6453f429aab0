package domain

import "time"

type Side string
type OrderType string
type OrderStatus string
type TimeInForce string
type MarketStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"

	Limit       OrderType = "LIMIT"
	MarketOrder OrderType = "MARKET"

	Open            OrderStatus = "OPEN"
	PartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	Filled          OrderStatus = "FILLED"
	Cancelled       OrderStatus = "CANCELLED"

	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"

	MarketActive MarketStatus = "ACTIVE"
	MarketPaused MarketStatus = "PAUSED"
)

type Order struct {
	ID          string
	MarketID    string
	TraderID    string
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce
	Price       *Amount // required for LIMIT, nil for MARKET
	Quantity    Amount
	Remaining   Amount
	Status      OrderStatus
	CreatedAt   time.Time
	// Sequence breaks price-time ties when CreatedAt collides; assigned
	// monotonically at admission.
	Sequence uint64
}

// Live reports whether the order may still rest in a book.
func (o *Order) Live() bool {
	return o.Status == Open || o.Status == PartiallyFilled
}

// Terminal reports whether the order reached a final state.
func (o *Order) Terminal() bool {
	return o.Status == Filled || o.Status == Cancelled
}
