package notifier

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/messaging"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/metrics"
)

// EventChannel is the broker channel carrying booking events between
// processes. Every API instance publishes to it and feeds its local hub
// from it, so subscribers see events regardless of which instance took
// the write.
const EventChannel = "booking.events"

// Service bridges the broker and the in-process hub. Events are
// ephemeral: nothing is stored and a subscriber that connects late gets
// no replay.
type Service struct {
	broker  messaging.Broker
	hub     *Hub
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(broker messaging.Broker, hub *Hub, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		broker:  broker,
		hub:     hub,
		logger:  log,
		metrics: m,
	}
}

// Publish sends a booking event through the broker. Local subscribers
// receive it via Run like everyone else; there is a single delivery
// path.
func (s *Service) Publish(ctx context.Context, event model.BookingEvent) error {
	if err := s.broker.Publish(ctx, EventChannel, event); err != nil {
		return err
	}
	s.metrics.IncEventsPublished()
	return nil
}

// Run consumes the broker subscription and fans events out to the hub
// until ctx is cancelled or the subscription closes.
func (s *Service) Run(ctx context.Context) error {
	messages, err := s.broker.Subscribe(ctx, EventChannel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event model.BookingEvent
			if err := json.Unmarshal(msg, &event); err != nil {
				s.logger.Error(err, "discarding malformed booking event")
				continue
			}
			s.hub.Broadcast(event)
		}
	}
}

// Subscribe registers a watcher for one provider on the local hub.
func (s *Service) Subscribe(providerID uuid.UUID) (<-chan model.BookingEvent, func()) {
	return s.hub.Subscribe(providerID)
}
