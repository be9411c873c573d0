package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecare/internal/metrics"
	"ecare/internal/models"
	"ecare/internal/service"
)

// CreateAppointmentRequest is the body for POST /api/appointments.
type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctorId"`
	PatientID       string `json:"patientId"`
	AppointmentDate string `json:"appointmentDate"` // YYYY-MM-DD
	TimeSlot        string `json:"timeSlot"`
}

// RescheduleRequest is the body for PUT /api/appointments/{id}/reschedule.
type RescheduleRequest struct {
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
}

// handleAvailability reports unavailable slots for a doctor and date.
// GET /api/availability?doctorId=...&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
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

	av, err := s.svc.Availability(r.Context(), doctorID, date)
	if err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctorID).Str("date", date).Msg("availability query failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch availability")
		return
	}
	writeJSON(w, http.StatusOK, av)
}

// handleAppointments creates an appointment or lists a patient's.
// POST /api/appointments | GET /api/appointments?patientId=...
func (s *HTTPServer) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createAppointment(w, r)
	case http.MethodGet:
		s.listAppointments(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_appointment")

	var req CreateAppointmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.DoctorID == "" || req.PatientID == "" || req.AppointmentDate == "" || req.TimeSlot == "" {
		writeError(w, http.StatusBadRequest, "all fields are required")
		return
	}

	a := &models.Appointment{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      req.AppointmentDate,
		TimeSlot:  req.TimeSlot,
	}
	if err := s.svc.Create(r.Context(), a); err != nil {
		s.writeServiceError(w, err, "create appointment")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *HTTPServer) listAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_appointments")

	patientID := r.URL.Query().Get("patientId")
	if patientID == "" {
		writeError(w, http.StatusBadRequest, "patientId is required")
		return
	}

	appointments, err := s.svc.PatientAppointments(r.Context(), patientID)
	if err != nil {
		s.log.Error().Err(err).Str("patient_id", patientID).Msg("list appointments failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appointments})
}

// handleAppointmentAction routes PUT /api/appointments/{id}/{action}.
func (s *HTTPServer) handleAppointmentAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/appointments/"
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if len(parts) != 2 {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	switch parts[1] {
	case "reschedule":
		s.rescheduleAppointment(w, r, id)
	case "cancel":
		s.appointmentTransition(w, r, id, "cancel_appointment", s.svc.Cancel, "Appointment canceled successfully")
	case "absent":
		s.appointmentTransition(w, r, id, "mark_absent", s.svc.MarkAbsent, "Patient marked as absent")
	case "consultation":
		s.appointmentTransition(w, r, id, "start_consultation", s.svc.StartConsultation, "Consultation started")
	case "complete":
		s.appointmentTransition(w, r, id, "complete_appointment", s.svc.Complete, "Appointment completed")
	default:
		writeError(w, http.StatusNotFound, "unknown action")
	}
}

func (s *HTTPServer) rescheduleAppointment(w http.ResponseWriter, r *http.Request, id int64) {
	metrics.IncHTTP("reschedule_appointment")

	var req RescheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AppointmentDate == "" || req.TimeSlot == "" {
		writeError(w, http.StatusBadRequest, "appointmentDate and timeSlot are required")
		return
	}

	a, err := s.svc.Reschedule(r.Context(), id, req.AppointmentDate, req.TimeSlot)
	if err != nil {
		s.writeServiceError(w, err, "reschedule appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Appointment rescheduled successfully",
		"appointment": a,
	})
}

func (s *HTTPServer) appointmentTransition(
	w http.ResponseWriter,
	r *http.Request,
	id int64,
	handler string,
	fn func(ctx context.Context, id int64) (*models.Appointment, error),
	message string,
) {
	metrics.IncHTTP(handler)

	a, err := fn(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, handler)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "appointment": a})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidLeaveRange):
		writeError(w, http.StatusBadRequest, service.ErrInvalidLeaveRange.Error())
	case errors.Is(err, service.ErrInvalidDecision):
		writeError(w, http.StatusBadRequest, service.ErrInvalidDecision.Error())
	case errors.Is(err, service.ErrSlotTaken):
		writeError(w, http.StatusConflict, service.ErrSlotTaken.Error())
	case errors.Is(err, service.ErrDoctorOnLeave):
		writeError(w, http.StatusBadRequest, service.ErrDoctorOnLeave.Error())
	case errors.Is(err, service.ErrPastSlot):
		writeError(w, http.StatusBadRequest, service.ErrPastSlot.Error())
	case errors.Is(err, service.ErrUnknownSlot):
		writeError(w, http.StatusBadRequest, service.ErrUnknownSlot.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, service.ErrInvalidTransition.Error())
	default:
		s.log.Error().Err(err).Str("op", op).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
