package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/olyamironova/trading-venue/internal/domain"
	"github.com/olyamironova/trading-venue/internal/port"
)

var _ port.Outbox = (*Store)(nil)

// Store buffers events for asynchronous delivery. Enqueue never blocks
// on downstream consumers; the relay drains PENDING events out of band.
type Store struct {
	mu     sync.Mutex
	events []domain.OutboxEvent
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Enqueue(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) {
	s.mu.Lock()
	s.events = append(s.events, domain.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        domain.EventPending,
		CreatedAt:     time.Now(),
	})
	s.mu.Unlock()
}

// List returns a copy of all events in enqueue order.
func (s *Store) List() []domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OutboxEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Pending returns the indexes and copies of events still awaiting
// delivery.
func (s *Store) Pending() []domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OutboxEvent
	for _, e := range s.events {
		if e.Status == domain.EventPending {
			out = append(out, e)
		}
	}
	return out
}

// MarkSent flips the first n PENDING events to SENT, in order. The relay
// calls this only after a successful publish.
func (s *Store) MarkSent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if n == 0 {
			return
		}
		if s.events[i].Status == domain.EventPending {
			s.events[i].Status = domain.EventSent
			n--
		}
	}
}
