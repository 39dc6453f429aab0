package domain

import "time"

// Trade records one fill event. Immutable once created.
type Trade struct {
	ID          string
	MarketID    string
	BuyOrderID  string
	SellOrderID string
	Price       Amount
	Quantity    Amount
	ExecutedAt  time.Time
}
