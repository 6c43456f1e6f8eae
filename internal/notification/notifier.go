// Package notification tells customers about their bookings. The request
// path only publishes an event; the email is sent by a consumer.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Publisher delivers an event under a partition key. *broker.Producer is the
// Kafka implementation.
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

// Notifier publishes booking events in the background. Failures are logged
// and never reach the caller.
type Notifier struct {
	publisher Publisher
	log       *zap.Logger
	wg        sync.WaitGroup
}

func NewNotifier(publisher Publisher, log *zap.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		log:       log.With(zap.String("component", "notifier")),
	}
}

func (n *Notifier) BookingConfirmed(ctx context.Context, bookingID uuid.UUID) {
	n.dispatch(ctx, newBookingEvent(EventBookingConfirmed, bookingID))
}

func (n *Notifier) BookingCancelled(ctx context.Context, bookingID uuid.UUID) {
	n.dispatch(ctx, newBookingEvent(EventBookingCancelled, bookingID))
}

// Wait blocks until in-flight publishes finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) dispatch(ctx context.Context, event BookingEvent) {
	// the request may finish before the publish does
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := n.publisher.PublishEvent(ctx, event.BookingID.String(), event); err != nil {
			n.log.Error("Failed to publish booking event",
				zap.Error(err),
				zap.String("event", event.EventType),
				zap.String("booking_id", event.BookingID.String()),
			)
			return
		}
		n.log.Debug("Booking event published",
			zap.String("event", event.EventType),
			zap.String("booking_id", event.BookingID.String()),
		)
	}()
}

// LocalPublisher hands events straight to a handler, for runs without Kafka.
type LocalPublisher struct {
	Handler *EmailHandler
}

func (p LocalPublisher) PublishEvent(ctx context.Context, _ string, event any) error {
	e, ok := event.(BookingEvent)
	if !ok {
		return nil
	}
	return p.Handler.Handle(ctx, e)
}
