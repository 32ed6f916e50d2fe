package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interviewsched/internal/models"
)

const bookingColumns = `id, candidate_id, slot_id, status, week_number, year, note, created_at, updated_at, confirmed_at, cancelled_at, version`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var status string
	var confirmedAt, cancelledAt sql.NullTime
	if err := row.Scan(&b.ID, &b.CandidateID, &b.SlotID, &status, &b.WeekNumber, &b.Year, &b.Note,
		&b.CreatedAt, &b.UpdatedAt, &confirmedAt, &cancelledAt, &b.Version); err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	if confirmedAt.Valid {
		t := confirmedAt.Time.UTC()
		b.ConfirmedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	return &b, nil
}

func (db *DB) getBooking(ctx context.Context, id int64, lock bool) (*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	if lock {
		q += db.dialect.forUpdate
	}
	b, err := scanBooking(db.queryRow(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get booking %d: %w", id, err))
	}
	return b, nil
}

// GetBooking reads a booking without locking it.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getBooking(ctx, id, false)
}

// LockBooking reads a booking and holds its write lock until the surrounding transaction ends.
func (db *DB) LockBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return db.getBooking(ctx, id, true)
}

// InsertBooking creates a booking. A second active booking on the same slot is reported
// as a concurrent modification.
func (db *DB) InsertBooking(ctx context.Context, b *models.Booking) error {
	if b.Version == 0 {
		b.Version = 1
	}
	err := db.queryRow(ctx, `
		INSERT INTO bookings
			(candidate_id, slot_id, status, week_number, year, note, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		b.CandidateID, b.SlotID, string(b.Status), b.WeekNumber, b.Year, b.Note,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(), b.Version,
	).Scan(&b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slot %d already has an active booking", models.ErrConcurrentModification, b.SlotID)
		}
		return classify(fmt.Errorf("insert booking: %w", err))
	}
	return nil
}

// SaveBooking writes the booking if its version is unchanged and bumps the version.
func (db *DB) SaveBooking(ctx context.Context, b *models.Booking) error {
	res, err := db.exec(ctx, `
		UPDATE bookings
		SET slot_id = ?, status = ?, week_number = ?, year = ?, note = ?,
			updated_at = ?, confirmed_at = ?, cancelled_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		b.SlotID, string(b.Status), b.WeekNumber, b.Year, b.Note,
		b.UpdatedAt.UTC(), nullTime(b.ConfirmedAt), nullTime(b.CancelledAt), b.ID, b.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: slot %d already has an active booking", models.ErrConcurrentModification, b.SlotID)
		}
		return fmt.Errorf("save booking %d: %w", b.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save booking %d: %w", b.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: booking %d version %d", models.ErrConcurrentModification, b.ID, b.Version)
	}
	b.Version++
	return nil
}

// HasActiveBookingInRange reports whether the candidate holds a non-cancelled booking
// on a slot starting within [from, to].
func (db *DB) HasActiveBookingInRange(ctx context.Context, candidateID int64, from, to time.Time) (bool, error) {
	var count int
	err := db.queryRow(ctx, `
		SELECT COUNT(*) FROM bookings b
		JOIN interview_slots s ON s.id = b.slot_id
		WHERE b.candidate_id = ? AND b.status <> ? AND s.start_time >= ? AND s.start_time <= ?`,
		candidateID, string(models.BookingCancelled), from.UTC(), to.UTC(),
	).Scan(&count)
	if err != nil {
		return false, classify(fmt.Errorf("check active bookings: %w", err))
	}
	return count > 0, nil
}

// GetBookingBySlot returns the slot's active booking, or its most recent one if all are cancelled.
func (db *DB) GetBookingBySlot(ctx context.Context, slotID int64) (*models.Booking, error) {
	b, err := scanBooking(db.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE slot_id = ?
		ORDER BY CASE WHEN status <> ? THEN 0 ELSE 1 END, id DESC
		LIMIT 1`, slotID, string(models.BookingCancelled)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: booking for slot %d", models.ErrNotFound, slotID)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get booking by slot %d: %w", slotID, err))
	}
	return b, nil
}

// ListBookingsByCandidate returns a candidate's bookings, newest first.
func (db *DB) ListBookingsByCandidate(ctx context.Context, candidateID int64) ([]models.Booking, error) {
	rows, err := db.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE candidate_id = ? ORDER BY created_at DESC, id DESC`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list candidate bookings: %w", err)
	}
	defer rows.Close()

	var result []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
