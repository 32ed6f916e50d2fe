package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"interviewsched/internal/clock"
	"interviewsched/internal/events"
	"interviewsched/internal/metrics"
	"interviewsched/internal/models"
	"interviewsched/internal/retry"

	"github.com/rs/zerolog"
)

const (
	opBook    = "book"
	opUpdate  = "update"
	opCancel  = "cancel"
	opConfirm = "confirm"
)

// BookingService is the transaction coordinator for booking state changes.
// It is the only writer of slot and booking status outside of expiry.
type BookingService struct {
	store     Store
	directory Directory
	capacity  *CapacityChecker
	clock     clock.Clock
	events    Publisher
	opts      Options
	logger    *zerolog.Logger
}

func NewBookingService(store Store, directory Directory, clk clock.Clock, publisher Publisher, opts Options, logger *zerolog.Logger) *BookingService {
	defaults := DefaultOptions()
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = defaults.DuplicateWindow
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = defaults.TxTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = defaults.Retry
	}
	l := logger.With().Str("component", "booking").Logger()
	return &BookingService{
		store:     store,
		directory: directory,
		capacity:  NewCapacityChecker(store, directory),
		clock:     clk,
		events:    publisher,
		opts:      opts,
		logger:    &l,
	}
}

// Book reserves an available slot for a candidate and creates a pending booking.
// Concurrent modifications are retried with backoff.
func (s *BookingService) Book(ctx context.Context, slotID, candidateID int64, note string) (*models.Booking, error) {
	started := time.Now()
	s.logger.Info().Int64("slot_id", slotID).Int64("candidate_id", candidateID).Msg("attempting to book slot")

	var booking *models.Booking
	err := s.withRetry(ctx, opBook, func(ctx context.Context) error {
		b, err := s.book(ctx, slotID, candidateID, note)
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	s.observe(opBook, started, err)
	if err != nil {
		s.logger.Info().Err(err).Int64("slot_id", slotID).Int64("candidate_id", candidateID).Msg("booking rejected")
		return nil, err
	}

	s.logger.Info().Int64("booking_id", booking.ID).Int64("slot_id", slotID).Int64("candidate_id", candidateID).Msg("slot booked")
	s.publish(events.BookingCreated, booking, 0)
	return booking, nil
}

func (s *BookingService) book(ctx context.Context, slotID, candidateID int64, note string) (*models.Booking, error) {
	exists, err := s.directory.CandidateExists(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: candidate %d", models.ErrNotFound, candidateID)
	}

	var booking *models.Booking
	err = s.inTx(ctx, func(ctx context.Context) error {
		slot, err := s.store.LockSlot(ctx, slotID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := checkBookable(slot, now); err != nil {
			return err
		}

		dup, err := s.store.HasActiveBookingInRange(ctx, candidateID, now, now.Add(s.opts.DuplicateWindow))
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("%w: candidate %d already has an active booking in the next %s",
				models.ErrDuplicateBooking, candidateID, s.opts.DuplicateWindow)
		}

		if err := s.capacity.Check(ctx, slot); err != nil {
			return err
		}

		slot.Status = models.SlotBooked
		slot.UpdatedAt = now
		if err := s.store.SaveSlot(ctx, slot); err != nil {
			return err
		}

		b := &models.Booking{
			CandidateID: candidateID,
			SlotID:      slot.ID,
			Status:      models.BookingPending,
			WeekNumber:  slot.WeekNumber,
			Year:        slot.Year,
			Note:        note,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.store.InsertBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, err
}

// UpdateBooking moves an active booking to another available slot, releasing the old one.
// The duplicate-booking window is not re-checked. A nil note keeps the current note.
func (s *BookingService) UpdateBooking(ctx context.Context, bookingID, newSlotID int64, note *string) (*models.Booking, error) {
	started := time.Now()
	s.logger.Info().Int64("booking_id", bookingID).Int64("new_slot_id", newSlotID).Msg("attempting to move booking")

	var (
		booking   *models.Booking
		oldSlotID int64
	)
	err := s.withRetry(ctx, opUpdate, func(ctx context.Context) error {
		b, prev, err := s.updateBooking(ctx, bookingID, newSlotID, note)
		if err != nil {
			return err
		}
		booking, oldSlotID = b, prev
		return nil
	})
	s.observe(opUpdate, started, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", bookingID).Int64("old_slot_id", oldSlotID).Int64("new_slot_id", newSlotID).Msg("booking moved")
	s.publish(events.BookingUpdated, booking, oldSlotID)
	return booking, nil
}

func (s *BookingService) updateBooking(ctx context.Context, bookingID, newSlotID int64, note *string) (*models.Booking, int64, error) {
	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, 0, err
	}
	if current.Status == models.BookingCancelled {
		return nil, 0, fmt.Errorf("%w: booking %d is cancelled", models.ErrNotAvailable, bookingID)
	}

	var booking *models.Booking
	err = s.inTx(ctx, func(ctx context.Context) error {
		oldSlot, newSlot, err := s.lockSlotPair(ctx, current.SlotID, newSlotID)
		if err != nil {
			return err
		}
		b, err := s.lockBookingOn(ctx, bookingID, current.SlotID)
		if err != nil {
			return err
		}
		if b.Status == models.BookingCancelled {
			return fmt.Errorf("%w: booking %d is cancelled", models.ErrNotAvailable, bookingID)
		}

		now := s.clock.Now()
		if err := checkBookable(newSlot, now); err != nil {
			return err
		}
		if err := s.capacity.Check(ctx, newSlot); err != nil {
			return err
		}

		oldSlot.Status = models.SlotAvailable
		oldSlot.UpdatedAt = now
		if err := s.store.SaveSlot(ctx, oldSlot); err != nil {
			return err
		}

		newSlot.Status = models.SlotBooked
		newSlot.UpdatedAt = now
		if err := s.store.SaveSlot(ctx, newSlot); err != nil {
			return err
		}

		b.SlotID = newSlot.ID
		b.WeekNumber = newSlot.WeekNumber
		b.Year = newSlot.Year
		if note != nil {
			b.Note = *note
		}
		b.UpdatedAt = now
		if err := s.store.SaveBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, current.SlotID, err
}

// CancelBooking releases the booking's slot and marks the booking cancelled. It is not retried.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	started := time.Now()
	booking, err := s.cancelBooking(ctx, bookingID)
	s.observe(opCancel, started, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", bookingID).Int64("slot_id", booking.SlotID).Msg("booking cancelled")
	s.publish(events.BookingCancelled, booking, 0)
	return booking, nil
}

func (s *BookingService) cancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.BookingCancelled {
		return nil, fmt.Errorf("%w: booking is already cancelled", models.ErrNotAvailable)
	}

	var booking *models.Booking
	err = s.inTx(ctx, func(ctx context.Context) error {
		slot, err := s.store.LockSlot(ctx, current.SlotID)
		if err != nil {
			return err
		}
		b, err := s.lockBookingOn(ctx, bookingID, current.SlotID)
		if err != nil {
			return err
		}
		if b.Status == models.BookingCancelled {
			return fmt.Errorf("%w: booking is already cancelled", models.ErrNotAvailable)
		}

		now := s.clock.Now()
		slot.Status = models.SlotAvailable
		slot.UpdatedAt = now
		if err := s.store.SaveSlot(ctx, slot); err != nil {
			return err
		}

		b.Status = models.BookingCancelled
		b.CancelledAt = &now
		b.UpdatedAt = now
		if err := s.store.SaveBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, err
}

// ConfirmBooking moves a pending booking and its slot to confirmed. It is not retried.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	started := time.Now()
	booking, err := s.confirmBooking(ctx, bookingID)
	s.observe(opConfirm, started, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", bookingID).Int64("slot_id", booking.SlotID).Msg("booking confirmed")
	s.publish(events.BookingConfirmed, booking, 0)
	return booking, nil
}

func (s *BookingService) confirmBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	current, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.BookingPending {
		return nil, notConfirmable(current.Status)
	}

	var booking *models.Booking
	err = s.inTx(ctx, func(ctx context.Context) error {
		slot, err := s.store.LockSlot(ctx, current.SlotID)
		if err != nil {
			return err
		}
		b, err := s.lockBookingOn(ctx, bookingID, current.SlotID)
		if err != nil {
			return err
		}
		if b.Status != models.BookingPending {
			return notConfirmable(b.Status)
		}

		now := s.clock.Now()
		b.Status = models.BookingConfirmed
		b.ConfirmedAt = &now
		b.UpdatedAt = now
		if err := s.store.SaveBooking(ctx, b); err != nil {
			return err
		}

		slot.Status = models.SlotConfirmed
		slot.UpdatedAt = now
		if err := s.store.SaveSlot(ctx, slot); err != nil {
			return err
		}
		booking = b
		return nil
	})
	return booking, err
}

// GetBooking returns a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// GetBookingBySlot returns the booking that holds, or last held, a slot.
func (s *BookingService) GetBookingBySlot(ctx context.Context, slotID int64) (*models.Booking, error) {
	return s.store.GetBookingBySlot(ctx, slotID)
}

// ListCandidateBookings returns every booking of a candidate, newest first.
func (s *BookingService) ListCandidateBookings(ctx context.Context, candidateID int64) ([]models.Booking, error) {
	exists, err := s.directory.CandidateExists(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("check candidate: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: candidate %d", models.ErrNotFound, candidateID)
	}
	return s.store.ListBookingsByCandidate(ctx, candidateID)
}

// History returns the recorded lifecycle events of a booking.
func (s *BookingService) History(ctx context.Context, bookingID int64) ([]models.BookingEvent, error) {
	if _, err := s.store.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.store.ListBookingEvents(ctx, bookingID)
}

func checkBookable(slot *models.Slot, now time.Time) error {
	if slot.Status != models.SlotAvailable {
		return fmt.Errorf("%w: slot %d is %s", models.ErrAlreadyBooked, slot.ID, slot.Status)
	}
	if !slot.StartTime.After(now) {
		return fmt.Errorf("%w: slot %d is in the past", models.ErrNotAvailable, slot.ID)
	}
	return nil
}

func notConfirmable(status models.BookingStatus) error {
	return fmt.Errorf("%w: booking cannot be confirmed: current status %s", models.ErrNotAvailable, status)
}

// lockSlotPair locks two slots in ascending id order and returns them as (a, b).
func (s *BookingService) lockSlotPair(ctx context.Context, a, b int64) (*models.Slot, *models.Slot, error) {
	if a == b {
		slot, err := s.store.LockSlot(ctx, a)
		return slot, slot, err
	}

	first, second := a, b
	if second < first {
		first, second = second, first
	}
	locked := make(map[int64]*models.Slot, 2)
	for _, id := range []int64{first, second} {
		slot, err := s.store.LockSlot(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = slot
	}
	return locked[a], locked[b], nil
}

// lockBookingOn locks the booking after its slot and verifies it was not moved meanwhile.
func (s *BookingService) lockBookingOn(ctx context.Context, bookingID, slotID int64) (*models.Booking, error) {
	b, err := s.store.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.SlotID != slotID {
		return nil, fmt.Errorf("%w: booking %d moved from slot %d to %d",
			models.ErrConcurrentModification, bookingID, slotID, b.SlotID)
	}
	return b, nil
}

// inTx runs fn in a store transaction bounded by the configured timeout.
// Hitting that timeout while the caller is still waiting counts as a concurrency failure.
func (s *BookingService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	err := s.store.WithTx(txCtx, fn)
	if err != nil && ctx.Err() == nil && errors.Is(txCtx.Err(), context.DeadlineExceeded) && !models.IsRetryable(err) {
		return fmt.Errorf("%w: transaction timed out: %v", models.ErrConcurrentModification, err)
	}
	return err
}

func (s *BookingService) withRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, s.opts.Retry, models.IsRetryable, func(attempt int, err error) {
		metrics.IncBookingRetry(operation)
		s.logger.Warn().Err(err).Str("operation", operation).Int("attempt", attempt).Msg("concurrent modification, retrying")
	}, fn)
}

func (s *BookingService) observe(operation string, started time.Time, err error) {
	metrics.ObserveBookingOperation(operation, resultLabel(err), time.Since(started))
}

func (s *BookingService) publish(eventType string, b *models.Booking, previousSlotID int64) {
	if s.events == nil {
		return
	}
	payload := BookingEvent{
		BookingID:      b.ID,
		CandidateID:    b.CandidateID,
		SlotID:         b.SlotID,
		PreviousSlotID: previousSlotID,
		Status:         b.Status,
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Int64("booking_id", b.ID).Msg("failed to publish event")
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, models.ErrNotAvailable):
		return "not_available"
	case errors.Is(err, models.ErrDuplicateBooking):
		return "duplicate"
	case errors.Is(err, models.ErrMaxInterviewsExceeded):
		return "max_exceeded"
	case errors.Is(err, models.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, models.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}
