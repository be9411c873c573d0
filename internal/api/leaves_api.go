package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecare/internal/metrics"
	"ecare/internal/models"
)

// LeaveRequest is the body for POST /api/leaves.
type LeaveRequest struct {
	DoctorID  string `json:"doctorId"`
	StartDate string `json:"startDate"` // YYYY-MM-DD
	EndDate   string `json:"endDate"`   // YYYY-MM-DD
	Reason    string `json:"reason"`
}

// LeaveDecisionRequest is the body for PUT /api/leaves/{id}.
type LeaveDecisionRequest struct {
	Status string `json:"status"` // approved | rejected
}

// handleLeaves files a leave request.
// POST /api/leaves
func (s *HTTPServer) handleLeaves(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_leave")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req LeaveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DoctorID == "" || req.StartDate == "" || req.EndDate == "" {
		writeError(w, http.StatusBadRequest, "doctorId, startDate and endDate are required")
		return
	}

	l := &models.DoctorLeave{
		DoctorID:  req.DoctorID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	}
	if err := s.svc.ApplyLeave(r.Context(), l); err != nil {
		s.writeServiceError(w, err, "create leave")
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// handleLeaveDecision approves or rejects a leave request.
// PUT /api/leaves/{id}
func (s *HTTPServer) handleLeaveDecision(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("decide_leave")
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/leaves/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid leave id")
		return
	}

	var req LeaveDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.DecideLeave(r.Context(), id, req.Status); err != nil {
		s.writeServiceError(w, err, "decide leave")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Leave " + req.Status,
		"id":      id,
		"status":  req.Status,
	})
}

// handleDoctorAppointments lists a doctor's day.
// GET /api/doctor/appointments?doctorId=...&date=YYYY-MM-DD
func (s *HTTPServer) handleDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("doctor_appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	doctorID := r.URL.Query().Get("doctorId")
	date := r.URL.Query().Get("date")
	if doctorID == "" || date == "" {
		writeError(w, http.StatusBadRequest, "doctorId and date are required")
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	appointments, err := s.svc.DoctorAppointments(r.Context(), doctorID, date)
	if err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctorID).Str("date", date).Msg("doctor day query failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}
