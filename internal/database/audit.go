package database

import (
	"context"
	"fmt"
	"time"

	"interviewsched/internal/models"
)

// InsertBookingEvent appends an entry to a booking's audit trail.
func (db *DB) InsertBookingEvent(ctx context.Context, e *models.BookingEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := db.queryRow(ctx, `
		INSERT INTO booking_events (booking_id, event_type, slot_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		e.BookingID, e.Type, e.SlotID, e.Status, e.CreatedAt.UTC(),
	).Scan(&e.ID)
	if err != nil {
		return classify(fmt.Errorf("insert booking event: %w", err))
	}
	return nil
}

// ListBookingEvents returns a booking's audit trail in insertion order.
func (db *DB) ListBookingEvents(ctx context.Context, bookingID int64) ([]models.BookingEvent, error) {
	rows, err := db.query(ctx, `
		SELECT id, booking_id, event_type, slot_id, status, created_at
		FROM booking_events WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list booking events: %w", err)
	}
	defer rows.Close()

	var result []models.BookingEvent
	for rows.Next() {
		var e models.BookingEvent
		if err := rows.Scan(&e.ID, &e.BookingID, &e.Type, &e.SlotID, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}
