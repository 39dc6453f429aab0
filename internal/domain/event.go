package domain

import "time"

type EventStatus string

const (
	EventPending EventStatus = "PENDING"
	EventSent    EventStatus = "SENT"
)

// OutboxEvent is handed to the delivery collaborator once per trade and
// once per book-mutating operation. Delivery ordering downstream is the
// collaborator's problem, not the engine's.
type OutboxEvent struct {
	AggregateType string      `json:"aggregateType"`
	AggregateID   string      `json:"aggregateId"`
	EventType     string      `json:"eventType"`
	Payload       any         `json:"payload"`
	Status        EventStatus `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// AuditEntry records one state-changing operation with before/after
// snapshot hashes computed by the audit collaborator.
type AuditEntry struct {
	AggregateType string    `json:"aggregateType"`
	AggregateID   string    `json:"aggregateId"`
	Action        string    `json:"action"`
	ActorID       string    `json:"actorId"`
	Role          string    `json:"role"`
	BeforeHash    string    `json:"beforeHash,omitempty"`
	AfterHash     string    `json:"afterHash,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Actor is the already-authenticated caller context. Authentication is an
// external gate; the venue only consumes the result.
type Actor struct {
	ID   string
	Role string
}
