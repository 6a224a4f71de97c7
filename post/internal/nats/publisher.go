// Package nats publishes the post service's domain events onto the bus.
package nats

import (
	"context"
	"fmt"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/events"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/metrics"
	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/models"
)

// Publisher emits typed, versioned post events. Payloads are validated at
// encode time so a malformed event can never leave this service.
type Publisher struct {
	bus messaging.Publisher
}

// NewPublisher creates a Publisher on top of the bus.
func NewPublisher(bus messaging.Publisher) *Publisher {
	return &Publisher{bus: bus}
}

// PublishPostCreated announces a newly persisted post.
func (p *Publisher) PublishPostCreated(ctx context.Context, post *models.Post) error {
	data, err := events.Encode(events.PostCreated{
		PostID:    post.ID,
		UserID:    post.UserID,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode post.created: %w", err)
	}
	return p.publish(ctx, messaging.SubjectPostCreated, data)
}

// PublishPostDeleted announces a removed post, carrying the media ids so
// downstream services can clean up attachments.
func (p *Publisher) PublishPostDeleted(ctx context.Context, post *models.Post) error {
	data, err := events.Encode(events.PostDeleted{
		PostID:   post.ID,
		UserID:   post.UserID,
		MediaIDs: post.MediaIDs,
	})
	if err != nil {
		return fmt.Errorf("encode post.deleted: %w", err)
	}
	return p.publish(ctx, messaging.SubjectPostDeleted, data)
}

func (p *Publisher) publish(ctx context.Context, subject string, data []byte) error {
	if err := p.bus.Publish(ctx, subject, data); err != nil {
		metrics.EventPublishErrors.WithLabelValues(subject).Inc()
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	metrics.EventsPublished.WithLabelValues(subject).Inc()
	return nil
}
