package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"interviewsched/internal/models"

	"github.com/rs/zerolog"
)

const (
	codeNotFound         = "NOT_FOUND"
	codeAlreadyBooked    = "SLOT_ALREADY_BOOKED"
	codeNotAvailable     = "SLOT_NOT_AVAILABLE"
	codeDuplicateBooking = "DUPLICATE_BOOKING"
	codeMaxInterviews    = "MAX_INTERVIEWS_EXCEEDED"
	codeConcurrent       = "CONCURRENT_MODIFICATION"
	codeValidation       = "VALIDATION_ERROR"
	codeRateLimited      = "RATE_LIMITED"
	codeInternal         = "INTERNAL_ERROR"
	internalErrorMessage = "an unexpected error occurred"
	rateLimitedMessage   = "too many requests"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Error: &errorBody{Code: code, Message: message, Retryable: retryable},
	})
}

func writeValidation(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, codeValidation, message, false)
}

// errorStatus maps a domain error to its HTTP status and stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, models.ErrAlreadyBooked):
		return http.StatusConflict, codeAlreadyBooked
	case errors.Is(err, models.ErrNotAvailable):
		return http.StatusBadRequest, codeNotAvailable
	case errors.Is(err, models.ErrDuplicateBooking):
		return http.StatusConflict, codeDuplicateBooking
	case errors.Is(err, models.ErrMaxInterviewsExceeded):
		return http.StatusConflict, codeMaxInterviews
	case errors.Is(err, models.ErrConcurrentModification):
		return http.StatusConflict, codeConcurrent
	case errors.Is(err, models.ErrInvalid):
		return http.StatusBadRequest, codeValidation
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeServiceError renders err; unexpected errors are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, status, code, internalErrorMessage, false)
		return
	}
	writeError(w, status, code, err.Error(), models.IsRetryable(err))
}
