// Package nats consumes post events off the bus and keeps the full-text
// index in step with the post service.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/events"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/cache"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/index"
	"github.com/pulsefeed-systems/pulsefeed-stack/search/internal/metrics"
)

// Handler subscribes to post.* and applies each event to the index. Index
// mutations are id-keyed upserts and deletes, so a redelivered event
// converges instead of corrupting the index.
type Handler struct {
	bus    messaging.Subscriber
	index  index.Indexer
	cache  *cache.Cache
	logger *slog.Logger

	sub messaging.Subscription
}

// NewHandler creates a Handler.
func NewHandler(bus messaging.Subscriber, idx index.Indexer, c *cache.Cache) *Handler {
	return &Handler{
		bus:    bus,
		index:  idx,
		cache:  c,
		logger: slog.Default().With(slog.String("component", "nats")),
	}
}

// Start subscribes to the post event stream.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.bus.Subscribe(ctx, messaging.PatternPostAll, h.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", messaging.PatternPostAll, err)
	}
	h.sub = sub

	h.logger.Info("subscribed to post events", slog.String("pattern", messaging.PatternPostAll))
	return nil
}

// Stop ends the subscription.
func (h *Handler) Stop() {
	if h.sub != nil {
		h.sub.Stop()
		h.sub = nil
	}
}

// handleMessage applies one event. A returned error drops the message;
// a malformed or unprocessable event is never redelivered.
func (h *Handler) handleMessage(ctx context.Context, msg *messaging.Message) error {
	var err error
	switch msg.Subject {
	case messaging.SubjectPostCreated:
		err = h.handlePostCreated(ctx, msg.Data)
	case messaging.SubjectPostDeleted:
		err = h.handlePostDeleted(ctx, msg.Data)
	default:
		// Subjects added after this build are not errors here.
		h.logger.WarnContext(ctx, "ignoring unhandled subject", slog.String("subject", msg.Subject))
		return nil
	}

	if err != nil {
		metrics.EventsConsumed.WithLabelValues(msg.Subject, "error").Inc()
		h.logger.ErrorContext(ctx, "failed to process event",
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return err
	}

	metrics.EventsConsumed.WithLabelValues(msg.Subject, "ok").Inc()
	return nil
}

func (h *Handler) handlePostCreated(ctx context.Context, data []byte) error {
	event, err := events.DecodePostCreated(data)
	if err != nil {
		return fmt.Errorf("decode post.created: %w", err)
	}

	if err := h.index.IndexPost(ctx, index.PostDocument{
		ID:        event.PostID,
		UserID:    event.UserID,
		Content:   event.Content,
		CreatedAt: event.CreatedAt,
	}); err != nil {
		return err
	}

	h.invalidateResults(ctx)
	return nil
}

func (h *Handler) handlePostDeleted(ctx context.Context, data []byte) error {
	event, err := events.DecodePostDeleted(data)
	if err != nil {
		return fmt.Errorf("decode post.deleted: %w", err)
	}

	if err := h.index.DeletePost(ctx, event.PostID); err != nil {
		return err
	}

	h.invalidateResults(ctx)
	return nil
}

// invalidateResults wipes cached result sets after an index mutation. A
// failure here only extends staleness up to the cache TTL; the event
// itself already took effect, so it is not worth dropping over.
func (h *Handler) invalidateResults(ctx context.Context) {
	if err := h.cache.InvalidateAll(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate search cache",
			slog.String("error", err.Error()))
	}
}
