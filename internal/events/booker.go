package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bookline-ai/booking-agent/internal/calendar"
	"github.com/bookline-ai/booking-agent/internal/model"
	"github.com/bookline-ai/booking-agent/pkg/logger"
	"github.com/bookline-ai/booking-agent/pkg/metrics"
)

// Publisher emits booking lifecycle events.
type Publisher interface {
	PublishEvent(ctx context.Context, event *model.BookingEvent) (uint64, error)
}

// PublishingBooker decorates a calendar.Booker with outcome metrics and
// event publishing. Publishing is best-effort: a failed publish never
// fails the booking, and a nil publisher disables eventing entirely.
type PublishingBooker struct {
	inner  calendar.Booker
	pub    Publisher
	logger *logger.Logger
}

// NewPublishingBooker wraps inner. pub may be nil when eventing is disabled.
func NewPublishingBooker(inner calendar.Booker, pub Publisher, log *logger.Logger) *PublishingBooker {
	if log == nil {
		log = logger.Global()
	}
	return &PublishingBooker{inner: inner, pub: pub, logger: log}
}

// Book delegates to the wrapped booker and publishes the outcome.
func (b *PublishingBooker) Book(ctx context.Context, sessionID string, slot model.TimeSlot) (*model.Booking, error) {
	booking, err := b.inner.Book(ctx, sessionID, slot)
	switch {
	case err == nil:
		metrics.RecordBooking("confirmed")
		b.publish(ctx, &model.BookingEvent{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Type:      model.BookingEventConfirmed,
			Booking:   booking,
			Slot:      slot,
			CreatedAt: time.Now().UTC(),
		})
		return booking, nil

	case errors.Is(err, calendar.ErrConflict):
		metrics.RecordBooking("conflict")
		b.publish(ctx, &model.BookingEvent{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Type:      model.BookingEventConflict,
			Slot:      slot,
			CreatedAt: time.Now().UTC(),
		})
		return nil, err

	default:
		// Validation rejections (past slot, outside hours) are not
		// lifecycle events; nothing was contended.
		metrics.RecordBooking("rejected")
		return nil, err
	}
}

func (b *PublishingBooker) publish(ctx context.Context, event *model.BookingEvent) {
	if b.pub == nil {
		return
	}

	if _, err := b.pub.PublishEvent(ctx, event); err != nil {
		b.logger.Warn("booking event publish failed",
			zap.String("session_id", event.SessionID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}
