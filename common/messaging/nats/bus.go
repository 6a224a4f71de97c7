// Package nats implements the PulseFeed bus on NATS JetStream. One Bus
// owns one lazily-established connection shared by the service's
// publisher and consumer sides, with the reconnect policy co-located here
// rather than scattered per call site.
package nats

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
)

// Config holds bus connection settings.
type Config struct {
	// URL is the NATS server URL (e.g. "nats://localhost:4222").
	URL string

	// Name identifies this client on the broker.
	Name string

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for infinite reconnects.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          name,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Bus is a JetStream-backed implementation of messaging.Publisher and
// messaging.Subscriber. The connection is established on first use.
type Bus struct {
	cfg Config

	mu   sync.Mutex
	conn *nats.Conn
	js   jetstream.JetStream
	subs []*subscription
}

// New creates a Bus. No connection is made until the first publish or
// subscribe.
func New(cfg Config) *Bus {
	return &Bus{cfg: cfg}
}

// connect dials the broker and ensures the posts stream exists. Safe to
// call repeatedly; only the first call pays the connection cost.
func (b *Bus) connect() (jetstream.JetStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.js != nil {
		return b.js, nil
	}

	opts := []nats.Option{
		nats.Name(b.cfg.Name),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.Timeout(b.cfg.Timeout),
	}

	conn, err := nats.Connect(b.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to bus: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	b.conn = conn
	b.js = js
	return js, nil
}

// IsConnected reports whether the bus currently holds a live connection.
func (b *Bus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}

// Close stops all subscriptions and releases the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.stop()
	}
	b.subs = nil

	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
		b.js = nil
	}
	return nil
}

var _ messaging.Publisher = (*Bus)(nil)
var _ messaging.Subscriber = (*Bus)(nil)
