package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"interviewsched/internal/clock"
	"interviewsched/internal/models"
	"interviewsched/internal/retry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *mockStore) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Slot), args.Error(1)
}

func (m *mockStore) LockSlot(ctx context.Context, id int64) (*models.Slot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Slot), args.Error(1)
}

func (m *mockStore) SaveSlot(ctx context.Context, s *models.Slot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStore) InsertSlotIfAbsent(ctx context.Context, s *models.Slot) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) CountActiveSlotsForWeek(ctx context.Context, interviewerID int64, week, year int) (int, error) {
	args := m.Called(ctx, interviewerID, week, year)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ExpireAvailableSlots(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListAvailableSlots(ctx context.Context, q models.SlotQuery) ([]models.Slot, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]models.Slot), args.Error(1)
}

func (m *mockStore) CountAvailableSlots(ctx context.Context, interviewerID int64, after time.Time) (int64, error) {
	args := m.Called(ctx, interviewerID, after)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) LockBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) HasActiveBookingInRange(ctx context.Context, candidateID int64, from, to time.Time) (bool, error) {
	args := m.Called(ctx, candidateID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetBookingBySlot(ctx context.Context, slotID int64) (*models.Booking, error) {
	args := m.Called(ctx, slotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) ListBookingsByCandidate(ctx context.Context, candidateID int64) ([]models.Booking, error) {
	args := m.Called(ctx, candidateID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) ListBookingEvents(ctx context.Context, bookingID int64) ([]models.BookingEvent, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]models.BookingEvent), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) CandidateExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockDirectory) GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interviewer), args.Error(1)
}

func (m *mockDirectory) ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error {
	return m.Called(ctx, interviewerID, windows).Error(0)
}

var mockNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newMockService(store *mockStore, dir *mockDirectory, txTimeout time.Duration) *BookingService {
	logger := zerolog.New(io.Discard)
	opts := Options{
		Retry:           retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2},
		DuplicateWindow: 14 * 24 * time.Hour,
		TxTimeout:       txTimeout,
	}
	return NewBookingService(store, dir, clock.NewFixed(mockNow), nil, opts, &logger)
}

func conflict() error {
	return errors.Join(models.ErrConcurrentModification, errors.New("database is locked"))
}

func TestBookingService_BookRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("gives up after max attempts", func(t *testing.T) {
		store := new(mockStore)
		dir := new(mockDirectory)
		svc := newMockService(store, dir, time.Second)

		dir.On("CandidateExists", mock.Anything, int64(7)).Return(true, nil)
		store.On("WithTx", mock.Anything).Return(conflict())

		b, err := svc.Book(ctx, 1, 7, "")
		assert.Nil(t, b)
		assert.ErrorIs(t, err, models.ErrConcurrentModification)
		assert.True(t, models.IsRetryable(err))
		store.AssertNumberOfCalls(t, "WithTx", 3)
	})

	t.Run("succeeds on second attempt", func(t *testing.T) {
		store := new(mockStore)
		dir := new(mockDirectory)
		svc := newMockService(store, dir, time.Second)

		slot := &models.Slot{
			ID: 1, InterviewerID: 3, Status: models.SlotAvailable,
			StartTime: mockNow.Add(24 * time.Hour), WeekNumber: 43, Year: 2026, Version: 1,
		}
		dir.On("CandidateExists", mock.Anything, int64(7)).Return(true, nil)
		dir.On("GetInterviewer", mock.Anything, int64(3)).Return(&models.Interviewer{ID: 3, MaxInterviewsPerWeek: 2}, nil)
		store.On("WithTx", mock.Anything).Return(conflict()).Once()
		store.On("WithTx", mock.Anything).Return(nil).Once()
		store.On("LockSlot", mock.Anything, int64(1)).Return(slot, nil).Once()
		store.On("HasActiveBookingInRange", mock.Anything, int64(7), mockNow, mockNow.Add(14*24*time.Hour)).Return(false, nil).Once()
		store.On("CountActiveSlotsForWeek", mock.Anything, int64(3), 43, 2026).Return(0, nil).Once()
		store.On("SaveSlot", mock.Anything, mock.AnythingOfType("*models.Slot")).Return(nil).Once()
		store.On("InsertBooking", mock.Anything, mock.AnythingOfType("*models.Booking")).Return(nil).Once()

		b, err := svc.Book(ctx, 1, 7, "first round")
		require.NoError(t, err)
		assert.Equal(t, models.BookingPending, b.Status)
		assert.Equal(t, int64(1), b.SlotID)
		assert.Equal(t, 43, b.WeekNumber)
		assert.Equal(t, "first round", b.Note)
		assert.Equal(t, models.SlotBooked, slot.Status)
		store.AssertNumberOfCalls(t, "WithTx", 2)
		store.AssertExpectations(t)
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		store := new(mockStore)
		dir := new(mockDirectory)
		svc := newMockService(store, dir, time.Second)

		slot := &models.Slot{ID: 1, InterviewerID: 3, Status: models.SlotBooked, StartTime: mockNow.Add(time.Hour)}
		dir.On("CandidateExists", mock.Anything, int64(7)).Return(true, nil)
		store.On("WithTx", mock.Anything).Return(nil)
		store.On("LockSlot", mock.Anything, int64(1)).Return(slot, nil)

		_, err := svc.Book(ctx, 1, 7, "")
		assert.ErrorIs(t, err, models.ErrAlreadyBooked)
		store.AssertNumberOfCalls(t, "WithTx", 1)
	})

	t.Run("unknown candidate", func(t *testing.T) {
		store := new(mockStore)
		dir := new(mockDirectory)
		svc := newMockService(store, dir, time.Second)

		dir.On("CandidateExists", mock.Anything, int64(7)).Return(false, nil)

		_, err := svc.Book(ctx, 1, 7, "")
		assert.ErrorIs(t, err, models.ErrNotFound)
		store.AssertNotCalled(t, "WithTx", mock.Anything)
	})
}

func TestBookingService_NoRetryOnCancelAndConfirm(t *testing.T) {
	ctx := context.Background()
	pending := &models.Booking{ID: 5, SlotID: 1, Status: models.BookingPending}

	t.Run("cancel", func(t *testing.T) {
		store := new(mockStore)
		svc := newMockService(store, new(mockDirectory), time.Second)

		store.On("GetBooking", mock.Anything, int64(5)).Return(pending, nil)
		store.On("WithTx", mock.Anything).Return(conflict())

		_, err := svc.CancelBooking(ctx, 5)
		assert.ErrorIs(t, err, models.ErrConcurrentModification)
		store.AssertNumberOfCalls(t, "WithTx", 1)
	})

	t.Run("confirm", func(t *testing.T) {
		store := new(mockStore)
		svc := newMockService(store, new(mockDirectory), time.Second)

		store.On("GetBooking", mock.Anything, int64(5)).Return(pending, nil)
		store.On("WithTx", mock.Anything).Return(conflict())

		_, err := svc.ConfirmBooking(ctx, 5)
		assert.ErrorIs(t, err, models.ErrConcurrentModification)
		store.AssertNumberOfCalls(t, "WithTx", 1)
	})
}

func TestBookingService_TransactionTimeout(t *testing.T) {
	store := new(mockStore)
	svc := newMockService(store, new(mockDirectory), 20*time.Millisecond)

	store.On("GetBooking", mock.Anything, int64(5)).
		Return(&models.Booking{ID: 5, SlotID: 1, Status: models.BookingPending}, nil)
	store.On("WithTx", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded)

	_, err := svc.CancelBooking(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
}

func TestBookingService_MovedBookingIsConflict(t *testing.T) {
	store := new(mockStore)
	svc := newMockService(store, new(mockDirectory), time.Second)

	store.On("GetBooking", mock.Anything, int64(5)).
		Return(&models.Booking{ID: 5, SlotID: 1, Status: models.BookingPending}, nil)
	store.On("WithTx", mock.Anything).Return(nil)
	store.On("LockSlot", mock.Anything, int64(1)).
		Return(&models.Slot{ID: 1, Status: models.SlotBooked}, nil)
	store.On("LockBooking", mock.Anything, int64(5)).
		Return(&models.Booking{ID: 5, SlotID: 9, Status: models.BookingPending}, nil)

	_, err := svc.ConfirmBooking(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrConcurrentModification)
	store.AssertNotCalled(t, "SaveBooking", mock.Anything, mock.Anything)
}

func TestResultLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{models.ErrNotFound, "not_found"},
		{models.ErrAlreadyBooked, "already_booked"},
		{models.ErrMaxInterviewsExceeded, "max_exceeded"},
		{conflict(), "conflict"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultLabel(tt.err))
	}
}
