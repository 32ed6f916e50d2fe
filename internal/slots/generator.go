package slots

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"interviewsched/internal/clock"
	"interviewsched/internal/models"
)

// DefaultWeeks is the generation horizon used when callers pass zero.
const DefaultWeeks = 2

// Slot is a generated interval that has not been persisted yet.
type Slot struct {
	StartTime time.Time
	EndTime   time.Time
}

// Generator turns weekly availability windows into concrete slot intervals.
type Generator struct {
	clock    clock.Clock
	location *time.Location
}

// NewGenerator creates a generator that interprets "HH:MM" windows in loc.
func NewGenerator(clk clock.Clock, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{clock: clk, location: loc}
}

// Location returns the time zone windows are interpreted in.
func (g *Generator) Location() *time.Location {
	return g.location
}

// Generate expands the active windows over a rolling horizon of weeks starting today.
// Only full-duration slots strictly after now are returned, ordered by start.
func (g *Generator) Generate(windows []models.Availability, duration time.Duration, weeks int) ([]Slot, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive", models.ErrInvalid)
	}
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	if err := ValidateWindows(windows); err != nil {
		return nil, err
	}

	now := g.clock.Now().In(g.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, g.location)
	horizon := today.AddDate(0, 0, 7*weeks)

	var result []Slot
	for week := 0; week < weeks; week++ {
		weekStart := today.AddDate(0, 0, 7*week)

		for _, w := range windows {
			if !w.Active {
				continue
			}

			date := nextOrSame(weekStart, w.DayOfWeek)
			if date.Before(today) {
				date = date.AddDate(0, 0, 7)
			}
			if date.After(horizon) {
				continue
			}

			start, err := parseTimeOnDate(date, w.StartTime)
			if err != nil {
				return nil, fmt.Errorf("parse start time: %w", err)
			}
			end, err := parseTimeOnDate(date, w.EndTime)
			if err != nil {
				return nil, fmt.Errorf("parse end time: %w", err)
			}

			for cursor := start; cursor.Add(duration).Before(end) || cursor.Add(duration).Equal(end); cursor = cursor.Add(duration) {
				if !cursor.After(now) {
					continue
				}
				result = append(result, Slot{StartTime: cursor, EndTime: cursor.Add(duration)})
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// ValidateWindows rejects malformed or overlapping active windows.
func ValidateWindows(windows []models.Availability) error {
	type span struct{ start, end int }
	byDay := make(map[time.Weekday][]span)

	for _, w := range windows {
		if !w.Active {
			continue
		}
		if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
			return fmt.Errorf("%w: day of week %d out of range", models.ErrInvalid, w.DayOfWeek)
		}
		start, err := minutesOfDay(w.StartTime)
		if err != nil {
			return err
		}
		end, err := minutesOfDay(w.EndTime)
		if err != nil {
			return err
		}
		if end <= start {
			return fmt.Errorf("%w: window %s %s-%s ends before it starts", models.ErrInvalid, w.DayOfWeek, w.StartTime, w.EndTime)
		}
		for _, other := range byDay[w.DayOfWeek] {
			if start < other.end && other.start < end {
				return fmt.Errorf("%w: overlapping windows on %s", models.ErrInvalid, w.DayOfWeek)
			}
		}
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], span{start, end})
	}
	return nil
}

func nextOrSame(from time.Time, day time.Weekday) time.Time {
	diff := (int(day) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, diff)
}

func minutesOfDay(timeStr string) (int, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: invalid time format: %s", models.ErrInvalid, timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("%w: invalid hour in %s", models.ErrInvalid, timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: invalid minute in %s", models.ErrInvalid, timeStr)
	}
	if hour == 24 && minute != 0 {
		return 0, fmt.Errorf("%w: invalid time %s", models.ErrInvalid, timeStr)
	}
	return hour*60 + minute, nil
}

func parseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	m, err := minutesOfDay(timeStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, date.Location()), nil
}
