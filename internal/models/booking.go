package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking binds one candidate to one slot.
type Booking struct {
	ID          int64         `json:"id"`
	CandidateID int64         `json:"candidate_id"`
	SlotID      int64         `json:"slot_id"`
	Status      BookingStatus `json:"status"`
	WeekNumber  int           `json:"week_number"`
	Year        int           `json:"year"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	Version     int64         `json:"version"`
}

// IsActive reports whether the booking still holds its slot.
func (b *Booking) IsActive() bool {
	return b.Status != BookingCancelled
}

// BookingEvent is one entry of a booking's audit trail.
type BookingEvent struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	Type      string    `json:"type"`
	SlotID    int64     `json:"slot_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
