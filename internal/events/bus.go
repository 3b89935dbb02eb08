package events

import (
	"sync"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// Subscriber is anything the Hub can fan events out to, matching the
// teacher's ClientInterface shape (ID + Send).
type Subscriber interface {
	ID() string
	FundID() domain.ID
	Send(data []byte) error
}

// Bus publishes domain events to external collaborators (notification
// dispatch, downstream projections). The orchestrator calls Publish after
// commit and falls back to the outbox only if Publish panics; Publish
// reports no other failure to its caller.
type Bus interface {
	Publish(event Event)
}

// Hub is the in-process fan-out implementation, organizing subscribers by
// fund the same way the teacher's websocket.Hub organizes clients by
// workspace.
type Hub struct {
	funds map[domain.ID]map[string]Subscriber
	mu    sync.RWMutex
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{funds: make(map[domain.ID]map[string]Subscriber)}
}

var _ Bus = (*Hub)(nil)

// Register adds a subscriber under its fund.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.funds[sub.FundID()] == nil {
		h.funds[sub.FundID()] = make(map[string]Subscriber)
	}
	h.funds[sub.FundID()][sub.ID()] = sub
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.funds[sub.FundID()]; ok {
		delete(subs, sub.ID())
		if len(subs) == 0 {
			delete(h.funds, sub.FundID())
		}
	}
}

// Publish fans event out to every subscriber registered for event.FundID.
func (h *Hub) Publish(event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to serialize event")
		return
	}

	h.mu.RLock()
	subs, ok := h.funds[event.FundID]
	if !ok || len(subs) == 0 {
		h.mu.RUnlock()
		return
	}
	subsCopy := make([]Subscriber, 0, len(subs))
	for _, s := range subs {
		subsCopy = append(subsCopy, s)
	}
	h.mu.RUnlock()

	for _, s := range subsCopy {
		go func(sub Subscriber) {
			if err := sub.Send(data); err != nil {
				log.Warn().Err(err).Str("subscriber_id", sub.ID()).Msg("failed to deliver event")
			}
		}(s)
	}
}

// SubscriberCount returns how many subscribers a fund currently has.
func (h *Hub) SubscriberCount(fundID domain.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.funds[fundID])
}

// NoOpBus discards every event; used in tests and when no bus is configured.
type NoOpBus struct{}

var _ Bus = NoOpBus{}

func (NoOpBus) Publish(Event) {}
