package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interviewsched/internal/models"
)

const slotColumns = `id, interviewer_id, start_time, end_time, status, week_number, year, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	var s models.Slot
	var status string
	if err := row.Scan(&s.ID, &s.InterviewerID, &s.StartTime, &s.EndTime, &status,
		&s.WeekNumber, &s.Year, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = models.SlotStatus(status)
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (db *DB) getSlot(ctx context.Context, id int64, lock bool) (*models.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM interview_slots WHERE id = ?`
	if lock {
		q += db.dialect.forUpdate
	}
	s, err := scanSlot(db.queryRow(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: slot %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get slot %d: %w", id, err))
	}
	return s, nil
}

// GetSlot reads a slot without locking it.
func (db *DB) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	return db.getSlot(ctx, id, false)
}

// LockSlot reads a slot and holds its write lock until the surrounding transaction ends.
func (db *DB) LockSlot(ctx context.Context, id int64) (*models.Slot, error) {
	return db.getSlot(ctx, id, true)
}

// SaveSlot writes the slot's status if its version is unchanged and bumps the version.
func (db *DB) SaveSlot(ctx context.Context, s *models.Slot) error {
	res, err := db.exec(ctx, `
		UPDATE interview_slots
		SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		string(s.Status), s.UpdatedAt.UTC(), s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("save slot %d: %w", s.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save slot %d: %w", s.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: slot %d version %d", models.ErrConcurrentModification, s.ID, s.Version)
	}
	s.Version++
	return nil
}

// InsertSlotIfAbsent inserts a new slot unless the interviewer already has one at that start.
// It reports whether a row was created.
func (db *DB) InsertSlotIfAbsent(ctx context.Context, s *models.Slot) (bool, error) {
	if s.Version == 0 {
		s.Version = 1
	}
	err := db.queryRow(ctx, `
		INSERT INTO interview_slots
			(interviewer_id, start_time, end_time, status, week_number, year, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (interviewer_id, start_time) DO NOTHING
		RETURNING id`,
		s.InterviewerID, s.StartTime.UTC(), s.EndTime.UTC(), string(s.Status),
		s.WeekNumber, s.Year, s.Version, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	).Scan(&s.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(fmt.Errorf("insert slot: %w", err))
	}
	return true, nil
}

// CountActiveSlotsForWeek counts BOOKED and CONFIRMED slots of an interviewer in a week bucket.
func (db *DB) CountActiveSlotsForWeek(ctx context.Context, interviewerID int64, week, year int) (int, error) {
	var count int
	err := db.queryRow(ctx, `
		SELECT COUNT(*) FROM interview_slots
		WHERE interviewer_id = ? AND week_number = ? AND year = ? AND status IN (?, ?)`,
		interviewerID, week, year, string(models.SlotBooked), string(models.SlotConfirmed),
	).Scan(&count)
	if err != nil {
		return 0, classify(fmt.Errorf("count active slots: %w", err))
	}
	return count, nil
}

// ExpireAvailableSlots moves every AVAILABLE slot starting before now to EXPIRED.
func (db *DB) ExpireAvailableSlots(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.exec(ctx, `
		UPDATE interview_slots
		SET status = ?, updated_at = ?, version = version + 1
		WHERE status = ? AND start_time < ?`,
		string(models.SlotExpired), now.UTC(), string(models.SlotAvailable), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire slots: %w", err)
	}
	return res.RowsAffected()
}

// ListAvailableSlots returns future AVAILABLE slots. Keyset pages are ordered by id,
// offset pages by start time.
func (db *DB) ListAvailableSlots(ctx context.Context, q models.SlotQuery) ([]models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM interview_slots WHERE status = ? AND start_time > ?`
	args := []any{string(models.SlotAvailable), q.After.UTC()}
	if q.InterviewerID > 0 {
		query += ` AND interviewer_id = ?`
		args = append(args, q.InterviewerID)
	}
	if q.Keyset {
		query += ` AND id > ? ORDER BY id`
		args = append(args, q.AfterID)
	} else {
		query += ` ORDER BY start_time, id`
	}
	query += ` LIMIT ? OFFSET ?`
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, q.Offset)

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return collectSlots(rows)
}

// CountAvailableSlots counts future AVAILABLE slots, optionally for one interviewer.
func (db *DB) CountAvailableSlots(ctx context.Context, interviewerID int64, after time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM interview_slots WHERE status = ? AND start_time > ?`
	args := []any{string(models.SlotAvailable), after.UTC()}
	if interviewerID > 0 {
		query += ` AND interviewer_id = ?`
		args = append(args, interviewerID)
	}
	var total int64
	if err := db.queryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, classify(fmt.Errorf("count available slots: %w", err))
	}
	return total, nil
}

// ListSlotsForWeek returns every slot in a week bucket ordered by interviewer and start.
func (db *DB) ListSlotsForWeek(ctx context.Context, week, year int) ([]models.Slot, error) {
	rows, err := db.query(ctx, `SELECT `+slotColumns+` FROM interview_slots
		WHERE week_number = ? AND year = ? ORDER BY interviewer_id, start_time`, week, year)
	if err != nil {
		return nil, fmt.Errorf("list week slots: %w", err)
	}
	return collectSlots(rows)
}

func collectSlots(rows *sql.Rows) ([]models.Slot, error) {
	defer rows.Close()
	var result []models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}
