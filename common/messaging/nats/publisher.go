package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
)

// streamMaxAge bounds how long undelivered events are retained. Consumers
// bind with DeliverNew, so retention only matters for broker restarts.
const streamMaxAge = 24 * time.Hour

// Publish sends data under the given subject on the posts stream,
// connecting lazily on first use. It returns once the broker has accepted
// the message and never waits for consumer acknowledgment. A transport
// failure is returned to the caller as-is; no retry happens here.
func (b *Bus) Publish(ctx context.Context, subject string, data []byte) error {
	js, err := b.connect()
	if err != nil {
		return err
	}

	if err := b.ensureStream(ctx, js); err != nil {
		return err
	}

	if _, err := js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// ensureStream declares the posts stream. CreateOrUpdateStream is
// idempotent on the broker, so every service can declare it at will.
func (b *Bus) ensureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     messaging.PostsStream,
		Subjects: messaging.PostsStreamSubjects,
		MaxAge:   streamMaxAge,
		// LimitsPolicy keeps messages until age/size limits so every bound
		// consumer sees every event (broadcast, not work-queue).
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", messaging.PostsStream, err)
	}
	return nil
}
