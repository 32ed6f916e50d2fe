package service

import (
	"context"
	"fmt"
	"time"

	"interviewsched/internal/clock"
	"interviewsched/internal/events"
	"interviewsched/internal/metrics"
	"interviewsched/internal/models"
	"interviewsched/internal/slots"

	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SlotService materializes interviewer availability into slots and serves slot reads.
type SlotService struct {
	store     Store
	directory Directory
	generator *slots.Generator
	clock     clock.Clock
	events    Publisher
	logger    *zerolog.Logger
}

func NewSlotService(store Store, directory Directory, generator *slots.Generator, clk clock.Clock, publisher Publisher, logger *zerolog.Logger) *SlotService {
	l := logger.With().Str("component", "slots").Logger()
	return &SlotService{
		store:     store,
		directory: directory,
		generator: generator,
		clock:     clk,
		events:    publisher,
		logger:    &l,
	}
}

// GenerateSlots creates AVAILABLE slots for the interviewer over the next weeks.
// Non-empty overrides replace the interviewer's active availability first.
// Slots that already exist are left untouched; only newly created slots are returned.
func (s *SlotService) GenerateSlots(ctx context.Context, interviewerID int64, overrides []models.Availability, weeks int) ([]models.Slot, error) {
	started := time.Now()
	interviewer, err := s.directory.GetInterviewer(ctx, interviewerID)
	if err != nil {
		return nil, err
	}

	windows := interviewer.ActiveAvailabilities()
	if len(overrides) > 0 {
		replaced := make([]models.Availability, len(overrides))
		for i, w := range overrides {
			w.InterviewerID = interviewerID
			w.Active = true
			replaced[i] = w
		}
		if err := slots.ValidateWindows(replaced); err != nil {
			return nil, err
		}
		if err := s.directory.ReplaceAvailabilities(ctx, interviewerID, replaced); err != nil {
			return nil, fmt.Errorf("replace availability: %w", err)
		}
		windows = replaced
	} else if err := slots.ValidateWindows(windows); err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no active weekly availability defined for interviewer %d", models.ErrInvalid, interviewerID)
	}

	candidates, err := s.generator.Generate(windows, interviewer.SlotDuration(), weeks)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	loc := s.generator.Location()
	var created []models.Slot
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		created = created[:0]
		for _, c := range candidates {
			week, year := models.WeekBucket(c.StartTime.In(loc))
			slot := models.Slot{
				InterviewerID: interviewerID,
				StartTime:     c.StartTime.UTC(),
				EndTime:       c.EndTime.UTC(),
				Status:        models.SlotAvailable,
				WeekNumber:    week,
				Year:          year,
				Version:       1,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			inserted, err := s.store.InsertSlotIfAbsent(ctx, &slot)
			if err != nil {
				return err
			}
			if inserted {
				created = append(created, slot)
			}
		}
		return nil
	})
	metrics.ObserveBookingOperation("generate", resultLabel(err), time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("persist slots: %w", err)
	}

	metrics.AddSlotsGenerated(len(created))
	s.logger.Info().
		Int64("interviewer_id", interviewerID).
		Int("candidates", len(candidates)).
		Int("created", len(created)).
		Msg("slots generated")
	if s.events != nil && len(created) > 0 {
		if err := s.events.PublishJSON(events.SlotsGenerated, SlotsEvent{InterviewerID: interviewerID, Count: int64(len(created))}); err != nil {
			s.logger.Error().Err(err).Msg("failed to publish slots event")
		}
	}
	return created, nil
}

// MarkExpiredSlots moves past AVAILABLE slots to EXPIRED and returns how many changed.
// Booked and confirmed slots are never expired.
func (s *SlotService) MarkExpiredSlots(ctx context.Context) (int64, error) {
	count, err := s.store.ExpireAvailableSlots(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	metrics.AddSlotsExpired(count)
	if count > 0 && s.events != nil {
		if err := s.events.PublishJSON(events.SlotsExpired, SlotsEvent{Count: count}); err != nil {
			s.logger.Error().Err(err).Msg("failed to publish slots event")
		}
	}
	return count, nil
}

func (s *SlotService) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	return s.store.GetSlot(ctx, id)
}

// SlotPageQuery selects a page of future available slots.
// A non-nil Cursor switches from offset to keyset pagination.
type SlotPageQuery struct {
	InterviewerID int64
	Page          int
	Size          int
	Cursor        *int64
}

// SlotPage is one page of available slots. Offset pages fill Page, Total and
// TotalPages; cursor pages fill NextCursor and HasNext.
type SlotPage struct {
	Slots      []models.Slot `json:"slots"`
	Page       int           `json:"page,omitempty"`
	Size       int           `json:"size"`
	Total      int64         `json:"total,omitempty"`
	TotalPages int           `json:"total_pages,omitempty"`
	NextCursor *int64        `json:"next_cursor,omitempty"`
	HasNext    bool          `json:"has_next"`
}

// ListAvailable pages future AVAILABLE slots by offset or by slot id cursor.
func (s *SlotService) ListAvailable(ctx context.Context, q SlotPageQuery) (*SlotPage, error) {
	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		return nil, fmt.Errorf("%w: page size must be at most %d", models.ErrInvalid, maxPageSize)
	}
	now := s.clock.Now()

	if q.Cursor != nil {
		if *q.Cursor < 0 {
			return nil, fmt.Errorf("%w: cursor must not be negative", models.ErrInvalid)
		}
		list, err := s.store.ListAvailableSlots(ctx, models.SlotQuery{
			InterviewerID: q.InterviewerID,
			After:         now,
			Keyset:        true,
			AfterID:       *q.Cursor,
			Limit:         size + 1,
		})
		if err != nil {
			return nil, err
		}
		page := &SlotPage{Size: size}
		if len(list) > size {
			list = list[:size]
			page.HasNext = true
		}
		if page.HasNext {
			next := list[len(list)-1].ID
			page.NextCursor = &next
		}
		page.Slots = nonNil(list)
		return page, nil
	}

	pageNum := q.Page
	if pageNum < 0 {
		return nil, fmt.Errorf("%w: page must not be negative", models.ErrInvalid)
	}
	total, err := s.store.CountAvailableSlots(ctx, q.InterviewerID, now)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListAvailableSlots(ctx, models.SlotQuery{
		InterviewerID: q.InterviewerID,
		After:         now,
		Limit:         size,
		Offset:        pageNum * size,
	})
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	return &SlotPage{
		Slots:      nonNil(list),
		Page:       pageNum,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    pageNum+1 < totalPages,
	}, nil
}

func nonNil(list []models.Slot) []models.Slot {
	if list == nil {
		return []models.Slot{}
	}
	return list
}
