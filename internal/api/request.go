package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"interviewsched/internal/models"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// availabilityInput is a weekly window as accepted over HTTP, e.g. {"day_of_week":"MONDAY","start_time":"09:00","end_time":"17:00"}.
type availabilityInput struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toAvailabilities(in []availabilityInput) ([]models.Availability, error) {
	out := make([]models.Availability, 0, len(in))
	for _, a := range in {
		day, err := models.ParseWeekday(a.DayOfWeek)
		if err != nil {
			return nil, err
		}
		out = append(out, models.Availability{
			DayOfWeek: day,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Active:    true,
		})
	}
	return out, nil
}
