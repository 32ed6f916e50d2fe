package models

import (
	"fmt"
	"strings"
	"time"
)

const DefaultSlotDurationMinutes = 60

// Interviewer is read-only to the booking engine.
type Interviewer struct {
	ID                   int64          `json:"id"`
	Name                 string         `json:"name"`
	Email                string         `json:"email"`
	SlotDurationMinutes  int            `json:"slot_duration_minutes"`
	MaxInterviewsPerWeek int            `json:"max_interviews_per_week"`
	Availabilities       []Availability `json:"availabilities"`
	CreatedAt            time.Time      `json:"created_at"`
}

// SlotDuration returns the configured slot length, falling back to one hour.
func (i *Interviewer) SlotDuration() time.Duration {
	if i.SlotDurationMinutes <= 0 {
		return DefaultSlotDurationMinutes * time.Minute
	}
	return time.Duration(i.SlotDurationMinutes) * time.Minute
}

// ActiveAvailabilities filters out deactivated windows.
func (i *Interviewer) ActiveAvailabilities() []Availability {
	var active []Availability
	for _, a := range i.Availabilities {
		if a.Active {
			active = append(active, a)
		}
	}
	return active
}

// Availability is a weekly window, e.g. Monday 09:00-17:00.
type Availability struct {
	ID            int64        `json:"id"`
	InterviewerID int64        `json:"interviewer_id"`
	DayOfWeek     time.Weekday `json:"day_of_week"`
	StartTime     string       `json:"start_time"` // "09:00"
	EndTime       string       `json:"end_time"`   // "17:00"
	Active        bool         `json:"active"`
}

// Candidate is read-only to the booking engine.
type Candidate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts English day names in any case ("MONDAY", "monday").
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown day of week %q", ErrInvalid, s)
	}
	return d, nil
}
