package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"interviewsched/internal/models"

	"github.com/rs/zerolog"
)

const (
	SlotsSheet    = "Slots"
	CapacitySheet = "Capacity"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Source provides the data of a weekly report.
type Source interface {
	ListSlotsForWeek(ctx context.Context, week, year int) ([]models.Slot, error)
	ListInterviewers(ctx context.Context) ([]models.Interviewer, error)
}

// Weekly renders per-week slot and capacity workbooks.
type Weekly struct {
	source   Source
	location *time.Location
	logger   zerolog.Logger
}

func NewWeekly(source Source, loc *time.Location, logger *zerolog.Logger) *Weekly {
	if loc == nil {
		loc = time.UTC
	}
	return &Weekly{
		source:   source,
		location: loc,
		logger:   logger.With().Str("component", "report").Logger(),
	}
}

type capacityRow struct {
	booked, confirmed, available, expired int
}

// Write renders the report for an ISO week bucket as XLSX into out.
func (r *Weekly) Write(ctx context.Context, week, year int, out io.Writer) error {
	if week < 1 || week > 53 || year < 1 {
		return fmt.Errorf("%w: week must be 1-53 and year positive", models.ErrInvalid)
	}

	slotList, err := r.source.ListSlotsForWeek(ctx, week, year)
	if err != nil {
		return fmt.Errorf("load week slots: %w", err)
	}
	interviewers, err := r.source.ListInterviewers(ctx)
	if err != nil {
		return fmt.Errorf("load interviewers: %w", err)
	}

	names := make(map[int64]string, len(interviewers))
	for _, iv := range interviewers {
		names[iv.ID] = iv.Name
	}

	w := newSheetWriter()
	defer func() { _ = w.close() }()

	if err := w.addSheet(SlotsSheet); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Slot ID", "Interviewer", "Date", "Start", "End", "Status"}); err != nil {
		return err
	}

	counts := make(map[int64]*capacityRow)
	for _, s := range slotList {
		start := s.StartTime.In(r.location)
		end := s.EndTime.In(r.location)
		row := []any{s.ID, names[s.InterviewerID], start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"), string(s.Status)}
		if err := w.writeRow(row); err != nil {
			return err
		}

		c, ok := counts[s.InterviewerID]
		if !ok {
			c = &capacityRow{}
			counts[s.InterviewerID] = c
		}
		switch s.Status {
		case models.SlotBooked:
			c.booked++
		case models.SlotConfirmed:
			c.confirmed++
		case models.SlotAvailable:
			c.available++
		case models.SlotExpired:
			c.expired++
		}
	}

	if err := w.addSheet(CapacitySheet); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Interviewer", "Max per week", "Booked", "Confirmed", "Available", "Expired", "Remaining"}); err != nil {
		return err
	}

	sort.Slice(interviewers, func(i, j int) bool { return interviewers[i].ID < interviewers[j].ID })
	for _, iv := range interviewers {
		c, ok := counts[iv.ID]
		if !ok {
			continue
		}
		remaining := iv.MaxInterviewsPerWeek - c.booked - c.confirmed
		if remaining < 0 {
			remaining = 0
		}
		row := []any{iv.Name, iv.MaxInterviewsPerWeek, c.booked, c.confirmed, c.available, c.expired, remaining}
		if err := w.writeRow(row); err != nil {
			return err
		}
	}

	if err := w.save(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	r.logger.Debug().Int("week", week).Int("year", year).Int("slots", len(slotList)).Msg("weekly report rendered")
	return nil
}
