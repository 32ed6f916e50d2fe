package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"interviewsched/internal/models"
	"interviewsched/internal/service"

	"github.com/rs/zerolog"
)

// BookingAPI is the booking coordinator as seen by HTTP handlers.
type BookingAPI interface {
	Book(ctx context.Context, slotID, candidateID int64, note string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, bookingID, newSlotID int64, note *string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingBySlot(ctx context.Context, slotID int64) (*models.Booking, error)
	ListCandidateBookings(ctx context.Context, candidateID int64) ([]models.Booking, error)
	History(ctx context.Context, bookingID int64) ([]models.BookingEvent, error)
}

// SlotAPI generates and reads slots.
type SlotAPI interface {
	GenerateSlots(ctx context.Context, interviewerID int64, overrides []models.Availability, weeks int) ([]models.Slot, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	ListAvailable(ctx context.Context, q service.SlotPageQuery) (*service.SlotPage, error)
}

// DirectoryAPI manages interviewers and candidates.
type DirectoryAPI interface {
	CreateInterviewer(ctx context.Context, iv *models.Interviewer) error
	GetInterviewer(ctx context.Context, id int64) (*models.Interviewer, error)
	ListInterviewers(ctx context.Context) ([]models.Interviewer, error)
	UpdateMaxInterviewsPerWeek(ctx context.Context, id int64, maxPerWeek int) error
	ReplaceAvailabilities(ctx context.Context, interviewerID int64, windows []models.Availability) error
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	GetCandidate(ctx context.Context, id int64) (*models.Candidate, error)
}

// Sweeper expires stale slots on demand.
type Sweeper interface {
	RunNow(ctx context.Context) (int64, error)
}

// ReportWriter renders the weekly workbook.
type ReportWriter interface {
	Write(ctx context.Context, week, year int, out io.Writer) error
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Bookings     BookingAPI
	Slots        SlotAPI
	Directory    DirectoryAPI
	Sweeper      Sweeper
	Reports      ReportWriter
	DefaultWeeks int
}

// Options tune the HTTP layer.
type Options struct {
	Port           int
	RateLimitRPS   float64
	RateLimitBurst int
}

// HTTPServer exposes the scheduling API under /api/v1.
type HTTPServer struct {
	deps    Deps
	opts    Options
	limiter *RateLimiter
	logger  zerolog.Logger
	handler http.Handler
}

func NewHTTPServer(deps Deps, opts Options, logger *zerolog.Logger) *HTTPServer {
	if deps.DefaultWeeks <= 0 {
		deps.DefaultWeeks = 2
	}
	s := &HTTPServer{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = max(1, int(opts.RateLimitRPS))
		}
		s.limiter = NewRateLimiter(opts.RateLimitRPS, burst)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/interviewers", s.handleCreateInterviewer)
	mux.HandleFunc("GET /api/v1/interviewers", s.handleListInterviewers)
	mux.HandleFunc("GET /api/v1/interviewers/{id}", s.handleGetInterviewer)
	mux.HandleFunc("PUT /api/v1/interviewers/{id}/availability", s.handleReplaceAvailability)
	mux.HandleFunc("PATCH /api/v1/interviewers/{id}/max-interviews", s.handleUpdateMaxInterviews)
	mux.HandleFunc("POST /api/v1/interviewers/{id}/slots/generate", s.handleGenerateSlots)

	mux.HandleFunc("POST /api/v1/candidates", s.handleCreateCandidate)
	mux.HandleFunc("GET /api/v1/candidates/{id}", s.handleGetCandidate)
	mux.HandleFunc("GET /api/v1/candidates/{id}/bookings", s.handleCandidateBookings)

	mux.HandleFunc("GET /api/v1/slots/{id}", s.handleGetSlot)
	mux.HandleFunc("GET /api/v1/slots/{id}/booking", s.handleSlotBooking)
	mux.HandleFunc("GET /api/v1/slots/available", s.handleAvailableSlots)
	mux.HandleFunc("GET /api/v1/slots/available/cursor", s.handleAvailableSlotsCursor)
	mux.HandleFunc("POST /api/v1/slots/expire", s.handleExpireSlots)

	mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("PUT /api/v1/bookings/{id}", s.handleUpdateBooking)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", s.handleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", s.handleConfirmBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}/history", s.handleBookingHistory)

	mux.HandleFunc("GET /api/v1/reports/weekly", s.handleWeeklyReport)

	var h http.Handler = mux
	h = s.observe(h)
	if s.limiter != nil {
		h = s.limiter.Middleware(h)
	}
	h = s.recoverer(h)
	h = requestID(h)
	return h
}

// Start serves until ctx is done.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx)
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Int("port", s.opts.Port).Msg("api server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
