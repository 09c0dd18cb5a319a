package notifier

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avirajsharma-ops/DTPS-sub004/internal/model"
	"github.com/avirajsharma-ops/DTPS-sub004/pkg/logger"
	redisbroker "github.com/avirajsharma-ops/DTPS-sub004/pkg/messaging/redis"
)

func testBroker(t *testing.T) *redisbroker.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	broker, err := redisbroker.NewBroker(redisbroker.Config{URL: "redis://" + mr.Addr()}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestServiceRoundTrip(t *testing.T) {
	broker := testBroker(t)
	svc := NewService(broker, NewHub(nil), testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	providerID := uuid.New()
	events, unsubscribe := svc.Subscribe(providerID)
	defer unsubscribe()

	// Give Run a moment to establish the broker subscription.
	time.Sleep(50 * time.Millisecond)

	sent := model.BookingEvent{
		Type:         model.BookingEventCancelled,
		ProviderID:   providerID,
		AffectedDate: "2026-03-02",
		Timestamp:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, svc.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.ProviderID, got.ProviderID)
		assert.Equal(t, sent.AffectedDate, got.AffectedDate)
	case <-time.After(2 * time.Second):
		t.Fatal("expected event to arrive through the broker")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	broker := testBroker(t)
	svc := NewService(broker, NewHub(nil), testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestServiceDiscardsMalformedEvents(t *testing.T) {
	broker := testBroker(t)
	hub := NewHub(nil)
	svc := NewService(broker, hub, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	providerID := uuid.New()
	events, unsubscribe := svc.Subscribe(providerID)
	defer unsubscribe()

	time.Sleep(50 * time.Millisecond)

	// Raw garbage on the channel must not kill the bridge.
	require.NoError(t, broker.Publish(ctx, EventChannel, "not a booking event"))
	require.NoError(t, svc.Publish(ctx, model.BookingEvent{
		Type:       model.BookingEventBooked,
		ProviderID: providerID,
	}))

	select {
	case got := <-events:
		assert.Equal(t, model.BookingEventBooked, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge stopped after malformed event")
	}
}
