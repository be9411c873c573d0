package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"ecare/internal/metrics"
)

// handleReports streams the appointments/payments workbook for a period.
// GET /api/reports?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleReports(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reports")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	if _, err := time.Parse("2006-01-02", from); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}

	// Build the workbook in memory so a failed export still gets a clean
	// error response.
	var buf bytes.Buffer
	if err := s.exporter.Export(r.Context(), from, to, &buf); err != nil {
		s.log.Error().Err(err).Str("from", from).Str("to", to).Msg("report export failed")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="appointments_%s_%s.xlsx"`, from, to))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
