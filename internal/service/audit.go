package service

import (
	"context"
	"time"

	"interviewsched/internal/events"
	"interviewsched/internal/models"

	"github.com/rs/zerolog"
)

// EventRecorder appends booking audit entries.
type EventRecorder interface {
	InsertBookingEvent(ctx context.Context, e *models.BookingEvent) error
}

// Subscriber is the part of the event bus the audit trail needs.
type Subscriber interface {
	Subscribe(eventType string, handler events.EventHandler)
}

// SubscribeAudit records every booking lifecycle event in the booking_events table.
func SubscribeAudit(bus Subscriber, recorder EventRecorder, logger *zerolog.Logger) {
	l := logger.With().Str("component", "audit").Logger()
	handler := func(e events.Event) error {
		var payload BookingEvent
		if err := e.Decode(&payload); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := recorder.InsertBookingEvent(ctx, &models.BookingEvent{
			BookingID: payload.BookingID,
			Type:      e.Type,
			SlotID:    payload.SlotID,
			Status:    string(payload.Status),
			CreatedAt: e.CreatedAt,
		})
		if err != nil {
			l.Error().Err(err).Str("event", e.Type).Int64("booking_id", payload.BookingID).Msg("failed to record booking event")
			return err
		}
		return nil
	}

	for _, t := range []string{events.BookingCreated, events.BookingUpdated, events.BookingCancelled, events.BookingConfirmed} {
		bus.Subscribe(t, handler)
	}
}
