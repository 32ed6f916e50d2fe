package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interviewsched/internal/models"
)

// CreateInterviewer inserts an interviewer together with its availability windows.
func (db *DB) CreateInterviewer(ctx context.Context, iv *models.Interviewer) error {
	if iv.SlotDurationMinutes <= 0 {
		iv.SlotDurationMinutes = models.DefaultSlotDurationMinutes
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	return db.WithTx(ctx, func(ctx context.Context) error {
		err := db.queryRow(ctx, `
			INSERT INTO interviewers (name, email, slot_duration_minutes, max_interviews_per_week, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			iv.Name, iv.Email, iv.SlotDurationMinutes, iv.MaxInterviewsPerWeek, iv.CreatedAt.UTC(),
		).Scan(&iv.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: interviewer email %s already exists", models.ErrInvalid, iv.Email)
			}
			return classify(fmt.Errorf("insert interviewer: %w", err))
		}
		return db.insertAvailabilities(ctx, iv.ID, iv.Availabilities)
	})
}

func (db *DB) insertAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error {
	for i := range windows {
		w := &windows[i]
		w.InterviewerID = interviewerID
		w.Active = true
		err := db.queryRow(ctx, `
			INSERT INTO weekly_availabilities (interviewer_id, day_of_week, start_time, end_time, is_active)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			interviewerID, int(w.DayOfWeek), w.StartTime, w.EndTime, true,
		).Scan(&w.ID)
		if err != nil {
			return classify(fmt.Errorf("insert availability: %w", err))
		}
	}
	return nil
}

// GetInterviewer returns an interviewer with its active availability windows.
func (db *DB) GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error) {
	var iv models.Interviewer
	err := db.queryRow(ctx, `
		SELECT id, name, email, slot_duration_minutes, max_interviews_per_week, created_at
		FROM interviewers WHERE id = ?`, id,
	).Scan(&iv.ID, &iv.Name, &iv.Email, &iv.SlotDurationMinutes, &iv.MaxInterviewsPerWeek, &iv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: interviewer %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get interviewer %d: %w", id, err))
	}
	iv.CreatedAt = iv.CreatedAt.UTC()

	iv.Availabilities, err = db.activeAvailabilities(ctx, id)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (db *DB) activeAvailabilities(ctx context.Context, interviewerID int64) ([]models.Availability, error) {
	rows, err := db.query(ctx, `
		SELECT id, interviewer_id, day_of_week, start_time, end_time, is_active
		FROM weekly_availabilities
		WHERE interviewer_id = ? AND is_active = ?
		ORDER BY day_of_week, start_time`, interviewerID, true)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	var result []models.Availability
	for rows.Next() {
		var a models.Availability
		var day int
		if err := rows.Scan(&a.ID, &a.InterviewerID, &day, &a.StartTime, &a.EndTime, &a.Active); err != nil {
			return nil, err
		}
		a.DayOfWeek = time.Weekday(day)
		result = append(result, a)
	}
	return result, rows.Err()
}

// ListInterviewers returns all interviewers ordered by id, with active windows.
func (db *DB) ListInterviewers(ctx context.Context) ([]models.Interviewer, error) {
	rows, err := db.query(ctx, `
		SELECT id, name, email, slot_duration_minutes, max_interviews_per_week, created_at
		FROM interviewers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list interviewers: %w", err)
	}

	var result []models.Interviewer
	for rows.Next() {
		var iv models.Interviewer
		if err := rows.Scan(&iv.ID, &iv.Name, &iv.Email, &iv.SlotDurationMinutes, &iv.MaxInterviewsPerWeek, &iv.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		iv.CreatedAt = iv.CreatedAt.UTC()
		result = append(result, iv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if result[i].Availabilities, err = db.activeAvailabilities(ctx, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdateMaxInterviewsPerWeek changes an interviewer's weekly cap.
func (db *DB) UpdateMaxInterviewsPerWeek(ctx context.Context, id int64, maxPerWeek int) error {
	res, err := db.exec(ctx, `UPDATE interviewers SET max_interviews_per_week = ? WHERE id = ?`, maxPerWeek, id)
	if err != nil {
		return fmt.Errorf("update max interviews: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: interviewer %d", models.ErrNotFound, id)
	}
	return nil
}

// ReplaceAvailabilities deactivates the interviewer's current windows and stores the new ones.
func (db *DB) ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		var exists int
		err := db.queryRow(ctx, `SELECT COUNT(*) FROM interviewers WHERE id = ?`, interviewerID).Scan(&exists)
		if err != nil {
			return classify(fmt.Errorf("check interviewer: %w", err))
		}
		if exists == 0 {
			return fmt.Errorf("%w: interviewer %d", models.ErrNotFound, interviewerID)
		}

		if _, err := db.exec(ctx, `UPDATE weekly_availabilities SET is_active = ? WHERE interviewer_id = ? AND is_active = ?`,
			false, interviewerID, true); err != nil {
			return fmt.Errorf("deactivate availabilities: %w", err)
		}
		return db.insertAvailabilities(ctx, interviewerID, windows)
	})
}

// CreateCandidate inserts a candidate.
func (db *DB) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := db.queryRow(ctx, `INSERT INTO candidates (name, email, created_at) VALUES (?, ?, ?) RETURNING id`,
		c.Name, c.Email, c.CreatedAt.UTC()).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: candidate email %s already exists", models.ErrInvalid, c.Email)
		}
		return classify(fmt.Errorf("insert candidate: %w", err))
	}
	return nil
}

// GetCandidate returns a candidate by id.
func (db *DB) GetCandidate(ctx context.Context, id int64) (*models.Candidate, error) {
	var c models.Candidate
	err := db.queryRow(ctx, `SELECT id, name, email, created_at FROM candidates WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: candidate %d", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get candidate %d: %w", id, err))
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// CandidateExists reports whether a candidate with the id exists.
func (db *DB) CandidateExists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := db.queryRow(ctx, `SELECT COUNT(*) FROM candidates WHERE id = ?`, id).Scan(&count); err != nil {
		return false, classify(fmt.Errorf("check candidate %d: %w", id, err))
	}
	return count > 0, nil
}
