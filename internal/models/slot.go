package models

import "time"

// SlotStatus is the lifecycle state of an interview slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotBooked    SlotStatus = "BOOKED"
	SlotConfirmed SlotStatus = "CONFIRMED"
	SlotExpired   SlotStatus = "EXPIRED"
)

// Slot is a fixed-duration bookable interval owned by one interviewer.
type Slot struct {
	ID            int64      `json:"id"`
	InterviewerID int64      `json:"interviewer_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Status        SlotStatus `json:"status"`
	WeekNumber    int        `json:"week_number"`
	Year          int        `json:"year"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsHeld reports whether an active booking is expected to reference the slot.
func (s *Slot) IsHeld() bool {
	return s.Status == SlotBooked || s.Status == SlotConfirmed
}

// WeekBucket returns the ISO week and ISO year of t.
// Slots and bookings are grouped by this pair for capacity accounting.
func WeekBucket(t time.Time) (week, year int) {
	year, week = t.ISOWeek()
	return week, year
}

// SlotQuery filters future available slots for listing.
// Keyset pages follow slot id after AfterID; otherwise Offset pages are ordered by start time.
type SlotQuery struct {
	InterviewerID int64
	After         time.Time
	Keyset        bool
	AfterID       int64
	Limit         int
	Offset        int
}
