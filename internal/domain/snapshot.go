package domain

import "time"

// OrderbookSnapshot is a point-in-time copy of the top of a market's book.
type OrderbookSnapshot struct {
	MarketID  string
	Bids      []Order
	Asks      []Order
	Timestamp time.Time
}

func (s *OrderbookSnapshot) DeepCopy() *OrderbookSnapshot {
	cp := &OrderbookSnapshot{
		MarketID:  s.MarketID,
		Bids:      make([]Order, len(s.Bids)),
		Asks:      make([]Order, len(s.Asks)),
		Timestamp: s.Timestamp,
	}
	copy(cp.Bids, s.Bids)
	copy(cp.Asks, s.Asks)
	return cp
}
