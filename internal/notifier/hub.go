package notifier

import (
	"sync"

	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

const subscriberBuffer = 16

type subscriber struct {
	ch chan model.BookingEvent
}

// Hub fans booking events out to in-process subscribers, keyed by
// provider. Delivery is at-most-once: a subscriber that cannot keep up
// has events dropped rather than stalling the rest.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[*subscriber]struct{}
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		subs:    make(map[uuid.UUID]map[*subscriber]struct{}),
		metrics: m,
	}
}

// Subscribe registers a watcher for one provider's events. The returned
// cancel func must be called when the watcher goes away; it closes the
// channel.
func (h *Hub) Subscribe(providerID uuid.UUID) (<-chan model.BookingEvent, func()) {
	sub := &subscriber{ch: make(chan model.BookingEvent, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[providerID] == nil {
		h.subs[providerID] = make(map[*subscriber]struct{})
	}
	h.subs[providerID][sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.AddSubscribers(1)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[providerID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, providerID)
				}
			}
			h.mu.Unlock()
			h.metrics.AddSubscribers(-1)
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Broadcast delivers an event to every subscriber of its provider
// without blocking. Full subscriber buffers drop the event.
func (h *Hub) Broadcast(event model.BookingEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.ProviderID] {
		select {
		case sub.ch <- event:
		default:
			h.metrics.IncSubscriberDrops()
		}
	}
}

func (h *Hub) SubscriberCount(providerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[providerID])
}
