// Package nats consumes post deletions off the bus and removes the media
// records the deleted post referenced.
package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/events"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/metrics"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/repository"
)

// Handler subscribes to post.deleted. Cleanup is a bulk delete over the
// event's media ids, so a redelivered event finds nothing left to remove.
type Handler struct {
	bus    messaging.Subscriber
	repo   repository.Repository
	logger *slog.Logger

	sub messaging.Subscription
}

// NewHandler creates a Handler.
func NewHandler(bus messaging.Subscriber, repo repository.Repository) *Handler {
	return &Handler{
		bus:    bus,
		repo:   repo,
		logger: slog.Default().With(slog.String("component", "nats")),
	}
}

// Start subscribes to post deletions.
func (h *Handler) Start(ctx context.Context) error {
	sub, err := h.bus.Subscribe(ctx, messaging.SubjectPostDeleted, h.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", messaging.SubjectPostDeleted, err)
	}
	h.sub = sub

	h.logger.Info("subscribed to post deletions", slog.String("subject", messaging.SubjectPostDeleted))
	return nil
}

// Stop ends the subscription.
func (h *Handler) Stop() {
	if h.sub != nil {
		h.sub.Stop()
		h.sub = nil
	}
}

// handleMessage applies one deletion. A returned error drops the message;
// a malformed or unprocessable event is never redelivered.
func (h *Handler) handleMessage(ctx context.Context, msg *messaging.Message) error {
	event, err := events.DecodePostDeleted(msg.Data)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(msg.Subject, "error").Inc()
		h.logger.ErrorContext(ctx, "failed to decode post.deleted",
			slog.String("error", err.Error()))
		return fmt.Errorf("decode post.deleted: %w", err)
	}

	if len(event.MediaIDs) == 0 {
		metrics.EventsConsumed.WithLabelValues(msg.Subject, "ok").Inc()
		return nil
	}

	deleted, err := h.repo.DeleteByIDs(ctx, event.MediaIDs)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(msg.Subject, "error").Inc()
		h.logger.ErrorContext(ctx, "failed to delete media",
			slog.String("post_id", event.PostID),
			slog.String("error", err.Error()))
		return err
	}

	metrics.EventsConsumed.WithLabelValues(msg.Subject, "ok").Inc()
	metrics.MediaDeleted.Add(float64(deleted))
	h.logger.InfoContext(ctx, "cleaned up media for deleted post",
		slog.String("post_id", event.PostID),
		slog.Int("referenced", len(event.MediaIDs)),
		slog.Int64("deleted", deleted))
	return nil
}
