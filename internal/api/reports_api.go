package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"interviewsched/internal/report"
)

// GET /api/v1/reports/weekly?year=&week=
func (s *HTTPServer) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeValidation(w, "year is required")
		return
	}
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil {
		writeValidation(w, "week is required")
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Reports.Write(r.Context(), week, year, &buf); err != nil {
		writeServiceError(w, r, &s.logger, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="interviews_%d_w%02d.xlsx"`, year, week))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
