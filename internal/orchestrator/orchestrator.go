// Package orchestrator implements the cross-aggregate wrapper named as
// component C9 in spec.md §4.9: idempotency-registry check, event emission
// after commit, and an outbox fallback so event delivery survives broker
// unavailability. No transaction spans an operation: neither Orchestrator
// nor the services open one, so each repository call a service makes
// commits on its own. Orchestrator is the thin layer each service calls
// before and after those writes.
package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/dafibh/fortuna/fortuna-backend/internal/events"
	"github.com/rs/zerolog/log"
)

// Orchestrator wires the idempotency registry, event bus, outbox, and audit
// sink around every write operation.
type Orchestrator struct {
	idempotency domain.IdempotencyRepository
	outbox      domain.OutboxRepository
	bus         events.Bus
	audit       domain.AuditSink
}

// New builds an Orchestrator from its external collaborators.
func New(idempotency domain.IdempotencyRepository, outbox domain.OutboxRepository, bus events.Bus, audit domain.AuditSink) *Orchestrator {
	if bus == nil {
		bus = events.NoOpBus{}
	}
	return &Orchestrator{idempotency: idempotency, outbox: outbox, bus: bus, audit: audit}
}

// HashRequest computes the stable request hash used to detect a retry with
// a differing body under the same Idempotency-Key.
func HashRequest(v interface{}) string {
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CheckIdempotency looks up (fundID, endpoint, key). If a record exists with
// a matching request hash, found is true and resultRef is the cached
// result reference; a matching key with a differing hash is ErrConflict.
func (o *Orchestrator) CheckIdempotency(fundID domain.ID, endpoint, key, requestHash string) (resultRef string, found bool, err error) {
	if o.idempotency == nil || key == "" {
		return "", false, nil
	}
	rec, err := o.idempotency.Get(fundID, endpoint, key)
	if err != nil {
		if err == domain.ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	if rec.RequestHash != requestHash {
		return "", false, domain.ErrConflict
	}
	return rec.ResultRef, true, nil
}

// RecordIdempotency persists the idempotency record for a completed operation.
func (o *Orchestrator) RecordIdempotency(fundID domain.ID, endpoint, key, requestHash, resultRef string) error {
	if o.idempotency == nil || key == "" {
		return nil
	}
	_, err := o.idempotency.Create(&domain.IdempotencyRecord{
		ID:             domain.NewID(),
		FundID:         fundID,
		Endpoint:       endpoint,
		IdempotencyKey: key,
		RequestHash:    requestHash,
		ResultRef:      resultRef,
		CreatedAt:      time.Now().UTC(),
	})
	return err
}

// Emit publishes ev on the bus; if Publish panics, it enqueues the event
// to the outbox for later retry (spec.md §4.9, §7). Publish returns no
// error, so a delivery failure the bus handles itself (Hub logs failed
// serialisation and subscriber sends) does not reach the outbox. Called
// strictly after commit.
func (o *Orchestrator) Emit(ev events.Event) {
	defer func() {
		if r := recover(); r != nil {
			o.toOutbox(ev)
		}
	}()
	o.bus.Publish(ev)
}

func (o *Orchestrator) toOutbox(ev events.Event) {
	if o.outbox == nil {
		return
	}
	payload, _ := ev.ToJSON()
	if _, err := o.outbox.Enqueue(&domain.OutboxEntry{
		ID:        domain.NewID(),
		FundID:    ev.FundID,
		EventType: string(ev.Type),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to enqueue event to outbox")
	}
}

// Audit records a before/after envelope, never failing the surrounding
// operation — audit is best-effort logging of what already committed.
func (o *Orchestrator) Audit(env domain.AuditEnvelope) {
	if o.audit == nil {
		return
	}
	env.OccurredAt = time.Now().UTC()
	if err := o.audit.Record(env); err != nil {
		log.Error().Err(err).Str("action", env.ActionType).Msg("failed to record audit envelope")
	}
}
