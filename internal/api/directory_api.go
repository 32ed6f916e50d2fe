package api

import (
	"net/http"

	"interviewsched/internal/models"
)

type createInterviewerRequest struct {
	Name                 string              `json:"name"`
	Email                string              `json:"email"`
	SlotDurationMinutes  int                 `json:"slot_duration_minutes"`
	MaxInterviewsPerWeek int                 `json:"max_interviews_per_week"`
	Availabilities       []availabilityInput `json:"availabilities"`
}

type availabilityRequest struct {
	Availabilities []availabilityInput `json:"availabilities"`
}

type maxInterviewsRequest struct {
	MaxInterviewsPerWeek int `json:"max_interviews_per_week"`
}

type createCandidateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// POST /api/v1/interviewers
func (s *HTTPServer) handleCreateInterviewer(w http.ResponseWriter, r *http.Request) {
	var req createInterviewerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	windows, err := toAvailabilities(req.Availabilities)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}

	iv := &models.Interviewer{
		Name:                 req.Name,
		Email:                req.Email,
		SlotDurationMinutes:  req.SlotDurationMinutes,
		MaxInterviewsPerWeek: req.MaxInterviewsPerWeek,
		Availabilities:       windows,
	}
	if err := s.deps.Directory.CreateInterviewer(r.Context(), iv); err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, iv)
}

// GET /api/v1/interviewers
func (s *HTTPServer) handleListInterviewers(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Directory.ListInterviewers(r.Context())
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	if list == nil {
		list = []models.Interviewer{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/interviewers/{id}
func (s *HTTPServer) handleGetInterviewer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	iv, err := s.deps.Directory.GetInterviewer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// PUT /api/v1/interviewers/{id}/availability
func (s *HTTPServer) handleReplaceAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	var req availabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	windows, err := toAvailabilities(req.Availabilities)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	if err := s.deps.Directory.ReplaceAvailabilities(r.Context(), id, windows); err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}

	iv, err := s.deps.Directory.GetInterviewer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// PATCH /api/v1/interviewers/{id}/max-interviews
func (s *HTTPServer) handleUpdateMaxInterviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	var req maxInterviewsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	if err := s.deps.Directory.UpdateMaxInterviewsPerWeek(r.Context(), id, req.MaxInterviewsPerWeek); err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}

	iv, err := s.deps.Directory.GetInterviewer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

// POST /api/v1/candidates
func (s *HTTPServer) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req createCandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidation(w, err.Error())
		return
	}
	c := &models.Candidate{Name: req.Name, Email: req.Email}
	if err := s.deps.Directory.CreateCandidate(r.Context(), c); err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GET /api/v1/candidates/{id}
func (s *HTTPServer) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeValidation(w, err.Error())
		return
	}
	c, err := s.deps.Directory.GetCandidate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
