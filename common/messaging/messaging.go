// Package messaging provides the broker-facing abstractions for the
// PulseFeed event bus. Services publish and subscribe through these
// interfaces without being coupled to the broker implementation.
//
// Delivery is at-least-once with broadcast semantics: every consumer that
// binds a matching pattern receives every matching event on its own
// binding. Handlers must therefore be idempotent. A handler error drops
// the message (reject without requeue) rather than retrying it; that is a
// deliberate liveness-over-completeness trade-off.
package messaging

import (
	"context"
	"time"
)

// Message is a single delivery from the bus.
type Message struct {
	// Subject is the routing key the message was published under.
	Subject string

	// Data is the serialized event envelope.
	Data []byte

	// Timestamp is when the delivery was received.
	Timestamp time.Time
}

// Handler processes one delivered message. Returning an error causes the
// delivery to be terminated (dropped), never requeued.
type Handler func(ctx context.Context, msg *Message) error

// Publisher publishes serialized events under a routing key.
type Publisher interface {
	// Publish sends data under the given subject. It returns once the
	// broker has accepted the message; it never waits for consumers.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close releases the underlying connection.
	Close() error
}

// Subscription is one live binding of a pattern to a handler.
type Subscription interface {
	// Stop ends delivery on this binding. The binding is ephemeral; it is
	// not recreated until the next process start.
	Stop()
}

// Subscriber binds routing-key patterns to handlers.
type Subscriber interface {
	// Subscribe creates an ephemeral binding for pattern and starts a
	// receive loop that feeds handler. Each subscriber gets its own
	// binding, so multiple services bound to the same pattern all receive
	// every matching event.
	Subscribe(ctx context.Context, pattern string, handler Handler) (Subscription, error)

	// Close stops all bindings and releases the connection.
	Close() error
}
