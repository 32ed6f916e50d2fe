package service

import (
	"context"
	"time"

	"interviewsched/internal/models"
	"interviewsched/internal/retry"
)

// SlotStore persists interview slots.
type SlotStore interface {
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	LockSlot(ctx context.Context, id int64) (*models.Slot, error)
	SaveSlot(ctx context.Context, s *models.Slot) error
	InsertSlotIfAbsent(ctx context.Context, s *models.Slot) (bool, error)
	CountActiveSlotsForWeek(ctx context.Context, interviewerID int64, week, year int) (int, error)
	ExpireAvailableSlots(ctx context.Context, now time.Time) (int64, error)
	ListAvailableSlots(ctx context.Context, q models.SlotQuery) ([]models.Slot, error)
	CountAvailableSlots(ctx context.Context, interviewerID int64, after time.Time) (int64, error)
}

// BookingStore persists bookings and their audit trail.
type BookingStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	LockBooking(ctx context.Context, id int64) (*models.Booking, error)
	InsertBooking(ctx context.Context, b *models.Booking) error
	SaveBooking(ctx context.Context, b *models.Booking) error
	HasActiveBookingInRange(ctx context.Context, candidateID int64, from, to time.Time) (bool, error)
	GetBookingBySlot(ctx context.Context, slotID int64) (*models.Booking, error)
	ListBookingsByCandidate(ctx context.Context, candidateID int64) ([]models.Booking, error)
	ListBookingEvents(ctx context.Context, bookingID int64) ([]models.BookingEvent, error)
}

// Store runs slot and booking operations inside one transaction.
// Implementations carry the transaction in the context passed to fn, and
// LockSlot/LockBooking hold row write locks until it ends.
type Store interface {
	SlotStore
	BookingStore
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Directory resolves interviewers and candidates owned by other components.
type Directory interface {
	CandidateExists(ctx context.Context, id int64) (bool, error)
	GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error)
	ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error
}

// Publisher receives lifecycle events after a transaction commits.
type Publisher interface {
	PublishJSON(eventType string, payload any) error
}

// Options tune the booking coordinator.
type Options struct {
	Retry           retry.Policy
	DuplicateWindow time.Duration
	TxTimeout       time.Duration
}

// DefaultOptions returns a two-week duplicate window, a 5s transaction timeout
// and the default retry policy.
func DefaultOptions() Options {
	return Options{
		Retry:           retry.DefaultPolicy(),
		DuplicateWindow: 14 * 24 * time.Hour,
		TxTimeout:       5 * time.Second,
	}
}

// BookingEvent is the payload published for booking lifecycle events.
type BookingEvent struct {
	BookingID      int64                `json:"booking_id"`
	CandidateID    int64                `json:"candidate_id"`
	SlotID         int64                `json:"slot_id"`
	PreviousSlotID int64                `json:"previous_slot_id,omitempty"`
	Status         models.BookingStatus `json:"status"`
}

// SlotsEvent is the payload published for slot generation and expiry.
type SlotsEvent struct {
	InterviewerID int64 `json:"interviewer_id,omitempty"`
	Count         int64 `json:"count"`
}
