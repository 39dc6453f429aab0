package outbox

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Relay drains PENDING outbox events to Kafka. Matching never waits on
// the relay; a dead broker just leaves events PENDING for the next pass.
type Relay struct {
	store    *Store
	writer   *kafka.Writer
	interval time.Duration
}

func NewRelay(store *Store, brokers []string, topic string, interval time.Duration) *Relay {
	return &Relay{
		store: store,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		interval: interval,
	}
}

// Run publishes pending events until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.flush(ctx); err != nil {
				log.Printf("outbox relay: flush failed: %v", err)
			}
		}
	}
}

func (r *Relay) flush(ctx context.Context) error {
	pending := r.store.Pending()
	if len(pending) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(pending))
	for _, e := range pending {
		value, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.AggregateID),
			Value: value,
		})
	}
	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	r.store.MarkSent(len(msgs))
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
