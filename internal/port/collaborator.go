package port

import (
	"context"

	"github.com/olyamironova/trading-venue/internal/domain"
)

// Audit is called once per state-changing operation with before/after
// snapshots; the collaborator computes and stores the content hashes.
type Audit interface {
	Record(ctx context.Context, aggregateType, aggregateID, action string, actor domain.Actor, before, after any)
}

// Outbox receives trade and book-mutation events for asynchronous
// delivery. Enqueue must not block matching on a slow consumer.
type Outbox interface {
	Enqueue(ctx context.Context, aggregateType, aggregateID, eventType string, payload any)
}
