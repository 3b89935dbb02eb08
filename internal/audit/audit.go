// Package audit implements the append-only audit sink the orchestrator
// writes to after every state-changing operation (spec.md §6). Production
// deployments point AuditSink at a durable store; InMemoryAuditSink is the
// in-process default used by tests and single-binary deployments.
package audit

import (
	"sync"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// InMemoryAuditSink appends envelopes to an in-memory slice. Safe for
// concurrent use.
type InMemoryAuditSink struct {
	mu      sync.Mutex
	entries []domain.AuditEnvelope
}

// NewInMemoryAuditSink creates an empty sink.
func NewInMemoryAuditSink() *InMemoryAuditSink {
	return &InMemoryAuditSink{}
}

var _ domain.AuditSink = (*InMemoryAuditSink)(nil)

// Record appends env to the in-memory journal.
func (s *InMemoryAuditSink) Record(env domain.AuditEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, env)
	log.Debug().
		Str("action", env.ActionType).
		Str("entity", env.EntityType).
		Str("entity_id", env.EntityID.String()).
		Msg("audit envelope recorded")
	return nil
}

// All returns a copy of every envelope recorded so far, oldest first.
func (s *InMemoryAuditSink) All() []domain.AuditEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEnvelope, len(s.entries))
	copy(out, s.entries)
	return out
}

// ForEntity filters the journal to envelopes matching entityType/entityID.
func (s *InMemoryAuditSink) ForEntity(entityType string, entityID domain.ID) []domain.AuditEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEnvelope
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}
