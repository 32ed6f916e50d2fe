package api

import (
	"net/http"
	"strconv"

	"interviewsched/internal/models"
	"interviewsched/internal/service"
)

type generateSlotsRequest struct {
	Weeks          int                 `json:"weeks,omitempty"`
	Availabilities []availabilityInput `json:"availabilities,omitempty"`
}

type generateSlotsResponse struct {
	Created int           `json:"created"`
	Slots   []models.Slot `json:"slots"`
}

type expireResponse struct {
	Expired int64 `json:"expired"`
}

// POST /api/v1/interviewers/{id}/slots/generate
// The body is optional; without it the stored availability and default horizon are used.
func (s *HTTPServer) handleGenerateSlots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}

	var req generateSlotsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeValidation(w, err.Error())
			return
		}
	}
	if req.Weeks < 0 || req.Weeks > 52 {
		writeValidation(w, "weeks must be between 1 and 52")
		return
	}
	weeks := req.Weeks
	if weeks == 0 {
		weeks = s.deps.DefaultWeeks
	}

	overrides, err := toAvailabilities(req.Availabilities)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}

	created, err := s.deps.Slots.GenerateSlots(r.Context(), id, overrides, weeks)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	if created == nil {
		created = []models.Slot{}
	}
	writeJSON(w, http.StatusCreated, generateSlotsResponse{Created: len(created), Slots: created})
}

// GET /api/v1/slots/{id}
func (s *HTTPServer) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	slot, err := s.deps.Slots.GetSlot(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// GET /api/v1/slots/available?interviewer_id=&page=&size=
func (s *HTTPServer) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	q, ok := s.slotQuery(w, r)
	if !ok {
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	q.Page = page
	s.writeSlotPage(w, r, q)
}

// GET /api/v1/slots/available/cursor?interviewer_id=&cursor=&size=
func (s *HTTPServer) handleAvailableSlotsCursor(w http.ResponseWriter, r *http.Request) {
	q, ok := s.slotQuery(w, r)
	if !ok {
		return
	}
	var cursor int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			writeValidation(w, "cursor must be a non-negative integer")
			return
		}
		cursor = v
	}
	q.Cursor = &cursor
	s.writeSlotPage(w, r, q)
}

func (s *HTTPServer) slotQuery(w http.ResponseWriter, r *http.Request) (service.SlotPageQuery, bool) {
	var q service.SlotPageQuery
	interviewerID, err := queryInt(r, "interviewer_id", 0)
	if err != nil {
		writeValidation(w, err.Error())
		return q, false
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		writeValidation(w, err.Error())
		return q, false
	}
	q.InterviewerID = int64(interviewerID)
	q.Size = size
	return q, true
}

func (s *HTTPServer) writeSlotPage(w http.ResponseWriter, r *http.Request, q service.SlotPageQuery) {
	page, err := s.deps.Slots.ListAvailable(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// POST /api/v1/slots/expire
func (s *HTTPServer) handleExpireSlots(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Sweeper.RunNow(r.Context())
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, expireResponse{Expired: count})
}
