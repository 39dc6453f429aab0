package core

import (
	"sort"
	"time"

	"github.com/olyamironova/trading-venue/internal/domain"
)

// bookEntry is the priority key of one resting order. The book stores
// keys, not order copies; the engine's order map stays the single owner
// of order state.
type bookEntry struct {
	orderID   string
	price     domain.Amount
	createdAt time.Time
	seq       uint64
}

// bookSide keeps resting entries sorted by (price, createdAt, seq).
// Bids sort price-descending, asks price-ascending. Insertion is a
// binary search plus a single slice shift, so the side stays sorted
// without re-sorting the whole slice on every insert.
type bookSide struct {
	descending bool
	entries    []bookEntry
}

// before reports whether a has strictly higher priority than b.
func (s *bookSide) before(a, b bookEntry) bool {
	cmp := a.price.Cmp(b.price)
	if s.descending {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp < 0
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.seq < b.seq
}

func (s *bookSide) insert(e bookEntry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.before(e, s.entries[i])
	})
	s.entries = append(s.entries, bookEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

func (s *bookSide) remove(orderID string) {
	for i, e := range s.entries {
		if e.orderID == orderID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *bookSide) removeAt(i int) {
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
}

func (s *bookSide) len() int { return len(s.entries) }

func (s *bookSide) ids(limit int) []string {
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]string, 0, limit)
	for _, e := range s.entries[:limit] {
		out = append(out, e.orderID)
	}
	return out
}

// orderBook holds both priority sides of one market. Only orders in
// state OPEN or PARTIALLY_FILLED may appear; an order is removed the
// instant it becomes FILLED or CANCELLED.
type orderBook struct {
	marketID string
	bids     *bookSide
	asks     *bookSide
}

func newOrderBook(marketID string) *orderBook {
	return &orderBook{
		marketID: marketID,
		bids:     &bookSide{descending: true},
		asks:     &bookSide{descending: false},
	}
}

func (b *orderBook) side(s domain.Side) *bookSide {
	if s == domain.Buy {
		return b.bids
	}
	return b.asks
}

// opposite returns the side an incoming order matches against.
func (b *orderBook) opposite(s domain.Side) *bookSide {
	if s == domain.Buy {
		return b.asks
	}
	return b.bids
}

func (b *orderBook) add(o *domain.Order) {
	var price domain.Amount
	if o.Price != nil {
		price = *o.Price
	}
	b.side(o.Side).insert(bookEntry{
		orderID:   o.ID,
		price:     price,
		createdAt: o.CreatedAt,
		seq:       o.Sequence,
	})
}

func (b *orderBook) remove(o *domain.Order) {
	b.side(o.Side).remove(o.ID)
}
