package domain

import "time"

// AuditEnvelope is the before/after state record the orchestrator emits for
// every state-changing operation (spec.md §6).
type AuditEnvelope struct {
	ActorID       ID
	FundID        *ID
	EntityType    string
	EntityID      ID
	ActionType    string
	BeforeState   []byte // JSON snapshot, nil if not applicable
	AfterState    []byte
	CorrelationID *string
	ServiceName   string
	OccurredAt    time.Time
}

// AuditSink is the append-only external collaborator that stores audit envelopes.
type AuditSink interface {
	Record(env AuditEnvelope) error
}

// OutboxEntry is a domain event queued for at-least-once delivery across a
// commit boundary (spec.md §4.9, §7).
type OutboxEntry struct {
	ID          ID
	FundID      ID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	DeliveredAt *time.Time
	Attempts    int
}

// OutboxRepository persists pending/delivered outbox entries.
type OutboxRepository interface {
	Enqueue(e *OutboxEntry) (*OutboxEntry, error)
	ListPending(limit int) ([]*OutboxEntry, error)
	MarkDelivered(id ID, deliveredAt time.Time) error
	MarkAttempted(id ID) error
}
