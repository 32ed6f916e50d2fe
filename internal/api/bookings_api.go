package api

import (
	"context"
	"net/http"

	"interviewsched/internal/models"
)

type createBookingRequest struct {
	SlotID      int64  `json:"slot_id"`
	CandidateID int64  `json:"candidate_id"`
	Note        string `json:"note,omitempty"`
}

type updateBookingRequest struct {
	SlotID int64   `json:"slot_id"`
	Note   *string `json:"note,omitempty"`
}

// POST /api/v1/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if req.SlotID <= 0 || req.CandidateID <= 0 {
		writeValidation(w, "slot_id and candidate_id are required")
		return
	}

	b, err := s.deps.Bookings.Book(r.Context(), req.SlotID, req.CandidateID, req.Note)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GET /api/v1/bookings/{id}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	b, err := s.deps.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// PUT /api/v1/bookings/{id}
func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	var req updateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if req.SlotID <= 0 {
		writeValidation(w, "slot_id is required")
		return
	}

	b, err := s.deps.Bookings.UpdateBooking(r.Context(), id, req.SlotID, req.Note)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DELETE /api/v1/bookings/{id}
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	s.bookingTransition(w, r, s.deps.Bookings.CancelBooking)
}

// POST /api/v1/bookings/{id}/confirm
func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	s.bookingTransition(w, r, s.deps.Bookings.ConfirmBooking)
}

func (s *HTTPServer) bookingTransition(w http.ResponseWriter, r *http.Request,
	transition func(ctx context.Context, id int64) (*models.Booking, error),
) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	b, err := transition(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GET /api/v1/bookings/{id}/history
func (s *HTTPServer) handleBookingHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	history, err := s.deps.Bookings.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	if history == nil {
		history = []models.BookingEvent{}
	}
	writeJSON(w, http.StatusOK, history)
}

// GET /api/v1/candidates/{id}/bookings
func (s *HTTPServer) handleCandidateBookings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	list, err := s.deps.Bookings.ListCandidateBookings(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/slots/{id}/booking
func (s *HTTPServer) handleSlotBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	b, err := s.deps.Bookings.GetBookingBySlot(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
