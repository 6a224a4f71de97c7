package nats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
)

// consumerInactiveThreshold lets the broker clean up ephemeral consumers
// whose process has gone away.
const consumerInactiveThreshold = 5 * time.Minute

// Subscribe creates an ephemeral consumer filtered on pattern and starts
// a blocking receive loop feeding handler. The binding uses DeliverNew:
// events published while this process was down are not replayed, a
// documented limitation of the platform. A handler error terminates the
// delivery (drop, no requeue); success acknowledges it.
func (b *Bus) Subscribe(ctx context.Context, pattern string, handler messaging.Handler) (messaging.Subscription, error) {
	js, err := b.connect()
	if err != nil {
		return nil, err
	}

	if err := b.ensureStream(ctx, js); err != nil {
		return nil, err
	}

	stream, err := js.Stream(ctx, messaging.PostsStream)
	if err != nil {
		return nil, err
	}

	// No Durable name: the binding is recreated on every process start.
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject:     pattern,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: consumerInactiveThreshold,
	})
	if err != nil {
		return nil, err
	}

	it, err := cons.Messages()
	if err != nil {
		return nil, err
	}

	sub := &subscription{
		pattern: pattern,
		it:      it,
		done:    make(chan struct{}),
		logger:  slog.Default().With(slog.String("component", "bus-consumer"), slog.String("pattern", pattern)),
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go sub.loop(ctx, handler)
	return sub, nil
}

// subscription is one ephemeral binding with its own receive loop.
type subscription struct {
	pattern string
	it      jetstream.MessagesContext
	done    chan struct{}
	logger  *slog.Logger
}

// loop blocks on the message iterator until the subscription stops.
func (s *subscription) loop(ctx context.Context, handler messaging.Handler) {
	defer close(s.done)
	for {
		msg, err := s.it.Next()
		if err != nil {
			if !errors.Is(err, jetstream.ErrMsgIteratorClosed) {
				s.logger.Error("receive loop stopped", slog.String("error", err.Error()))
			}
			return
		}
		dispatch(ctx, handler, msg, msg.Subject(), msg.Data(), s.logger)
	}
}

// Stop ends delivery and waits for the loop to drain.
func (s *subscription) Stop() {
	s.stop()
	<-s.done
}

func (s *subscription) stop() {
	s.it.Stop()
}

// delivery is the subset of jetstream.Msg the dispatch decision needs.
type delivery interface {
	Ack() error
	Term() error
}

// dispatch applies the acknowledgment policy: ack on success, terminate
// (drop without requeue) on handler error. Dropping is deliberate; a
// failing handler must not turn one bad event into a retry storm, at the
// cost of losing that one event.
func dispatch(ctx context.Context, handler messaging.Handler, d delivery, subject string, data []byte, logger *slog.Logger) {
	msg := &messaging.Message{
		Subject:   subject,
		Data:      data,
		Timestamp: time.Now(),
	}

	if err := handler(ctx, msg); err != nil {
		logger.Error("handler failed, dropping event",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		if termErr := d.Term(); termErr != nil {
			logger.Warn("terminate failed", slog.String("error", termErr.Error()))
		}
		return
	}

	if err := d.Ack(); err != nil {
		logger.Warn("ack failed", slog.String("error", err.Error()))
	}
}
