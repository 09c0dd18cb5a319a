package messaging

import (
	"context"
)

// Broker is the transport used to move booking events between processes.
// Delivery is at-most-once: there is no backlog and a subscriber that
// connects late simply misses earlier messages.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
