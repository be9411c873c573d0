// Package service holds the booking business rules. The HTTP layer stays
// thin; every invariant about slots, leaves and status transitions lives
// here.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ecare/internal/events"
	"ecare/internal/metrics"
	"ecare/internal/models"
	"ecare/internal/slots"
)

var (
	ErrDoctorOnLeave     = errors.New("doctor is on leave on the selected date")
	ErrSlotTaken         = errors.New("time slot already booked")
	ErrPastSlot          = errors.New("cannot book an appointment for a past time slot")
	ErrUnknownSlot       = errors.New("unknown time slot")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("appointment status does not allow this change")
	ErrInvalidLeaveRange = errors.New("leave dates are invalid")
	ErrInvalidDecision   = errors.New("leave decision must approve or reject")
)

// Repository is the storage surface the service needs.
type Repository interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	HasActiveAppointment(ctx context.Context, doctorID, date, slot string) (bool, error)
	GetBookedSlots(ctx context.Context, doctorID, date string) ([]string, error)
	GetPatientAppointments(ctx context.Context, patientID string, excludeCompleted bool) ([]models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status string) error
	UpdateAppointmentSlot(ctx context.Context, id int64, date, slot, status string) error
	GetDoctorAppointments(ctx context.Context, doctorID, date string) ([]models.Appointment, error)
	GetApprovedLeave(ctx context.Context, doctorID, date string) (*models.DoctorLeave, error)
	CreateLeave(ctx context.Context, l *models.DoctorLeave) error
	DecideLeave(ctx context.Context, id int64, status string) error
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPatientPayments(ctx context.Context, patientID string) ([]models.Payment, error)
}

// Publisher decouples the service from the event bus.
type Publisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AppointmentService applies booking rules on top of the repository.
type AppointmentService struct {
	repo   Repository
	bus    Publisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAppointmentService(repo Repository, bus Publisher, logger *zerolog.Logger) *AppointmentService {
	return &AppointmentService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Availability reports which catalog slots are unavailable for the
// doctor on the date. An approved leave marks the whole day off and the
// full catalog unavailable.
func (s *AppointmentService) Availability(ctx context.Context, doctorID, date string) (*models.Availability, error) {
	leave, err := s.repo.GetApprovedLeave(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("check leave: %w", err)
	}
	if leave != nil {
		return &models.Availability{
			Unavailable:      true,
			UnavailableSlots: append([]string(nil), slots.Catalog...),
			Message:          "Doctor is on approved leave on this date.",
		}, nil
	}

	booked, err := s.repo.GetBookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("booked slots: %w", err)
	}
	return &models.Availability{UnavailableSlots: booked}, nil
}

// Create books a new appointment. The server is the final arbiter of the
// (doctor, date, slot) uniqueness invariant; clients only best-effort
// filter before submitting.
func (s *AppointmentService) Create(ctx context.Context, a *models.Appointment) error {
	if !slots.InCatalog(a.TimeSlot) {
		return ErrUnknownSlot
	}
	date, err := time.ParseInLocation("2006-01-02", a.Date, s.now().Location())
	if err != nil {
		return fmt.Errorf("invalid appointment date: %w", err)
	}

	leave, err := s.repo.GetApprovedLeave(ctx, a.DoctorID, a.Date)
	if err != nil {
		return fmt.Errorf("check leave: %w", err)
	}
	if leave != nil {
		return ErrDoctorOnLeave
	}

	if err := s.rejectPastSlot(date, a.TimeSlot); err != nil {
		return err
	}

	taken, err := s.repo.HasActiveAppointment(ctx, a.DoctorID, a.Date, a.TimeSlot)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	a.Status = models.StatusScheduled
	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		return err
	}

	metrics.IncAppointmentCreated()
	_ = s.bus.PublishJSON(events.TypeAppointmentCreated, a)
	s.logger.Info().
		Int64("appointment_id", a.ID).
		Str("doctor_id", a.DoctorID).
		Str("date", a.Date).
		Str("slot", a.TimeSlot).
		Msg("appointment created")
	return nil
}

// Cancel sets the appointment to canceled, freeing its slot.
func (s *AppointmentService) Cancel(ctx context.Context, id int64) (*models.Appointment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.CanCancel() {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateAppointmentStatus(ctx, id, models.StatusCanceled); err != nil {
		return nil, err
	}
	a.Status = models.StatusCanceled

	metrics.IncAppointmentStatus(models.StatusCanceled)
	_ = s.bus.PublishJSON(events.TypeAppointmentCanceled, a)
	s.logger.Info().Int64("appointment_id", id).Msg("appointment canceled")
	return a, nil
}

// Reschedule moves the appointment to a new (date, slot), re-running the
// leave and conflict checks against the new target.
func (s *AppointmentService) Reschedule(ctx context.Context, id int64, newDate, newSlot string) (*models.Appointment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.CanReschedule() {
		return nil, ErrInvalidTransition
	}
	if !slots.InCatalog(newSlot) {
		return nil, ErrUnknownSlot
	}
	date, err := time.ParseInLocation("2006-01-02", newDate, s.now().Location())
	if err != nil {
		return nil, fmt.Errorf("invalid appointment date: %w", err)
	}

	leave, err := s.repo.GetApprovedLeave(ctx, a.DoctorID, newDate)
	if err != nil {
		return nil, fmt.Errorf("check leave: %w", err)
	}
	if leave != nil {
		return nil, ErrDoctorOnLeave
	}

	if err := s.rejectPastSlot(date, newSlot); err != nil {
		return nil, err
	}

	taken, err := s.repo.HasActiveAppointment(ctx, a.DoctorID, newDate, newSlot)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	if err := s.repo.UpdateAppointmentSlot(ctx, id, newDate, newSlot, models.StatusRescheduled); err != nil {
		return nil, err
	}
	a.Date = newDate
	a.TimeSlot = newSlot
	a.Status = models.StatusRescheduled

	metrics.IncAppointmentStatus(models.StatusRescheduled)
	_ = s.bus.PublishJSON(events.TypeAppointmentRescheduled, a)
	s.logger.Info().
		Int64("appointment_id", id).
		Str("date", newDate).
		Str("slot", newSlot).
		Msg("appointment rescheduled")
	return a, nil
}

// MarkAbsent flags a no-show.
func (s *AppointmentService) MarkAbsent(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.transition(ctx, id, models.StatusAbsent)
}

// StartConsultation moves a scheduled appointment into consultation.
func (s *AppointmentService) StartConsultation(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.transition(ctx, id, models.StatusInConsultation)
}

// Complete closes out a finished consultation.
func (s *AppointmentService) Complete(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.transition(ctx, id, models.StatusCompleted)
}

// PatientAppointments lists a patient's non-completed appointments.
func (s *AppointmentService) PatientAppointments(ctx context.Context, patientID string) ([]models.Appointment, error) {
	return s.repo.GetPatientAppointments(ctx, patientID, true)
}

// DoctorAppointments lists a doctor's non-canceled appointments on a date.
func (s *AppointmentService) DoctorAppointments(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	return s.repo.GetDoctorAppointments(ctx, doctorID, date)
}

// ApplyLeave files a leave request. Requests start pending; availability
// only reflects them once approved.
func (s *AppointmentService) ApplyLeave(ctx context.Context, l *models.DoctorLeave) error {
	start, err := time.Parse("2006-01-02", l.StartDate)
	if err != nil {
		return ErrInvalidLeaveRange
	}
	end, err := time.Parse("2006-01-02", l.EndDate)
	if err != nil {
		return ErrInvalidLeaveRange
	}
	if end.Before(start) {
		return ErrInvalidLeaveRange
	}

	l.Status = models.LeavePending
	if err := s.repo.CreateLeave(ctx, l); err != nil {
		return err
	}
	s.logger.Info().
		Int64("leave_id", l.ID).
		Str("doctor_id", l.DoctorID).
		Str("start", l.StartDate).
		Str("end", l.EndDate).
		Msg("leave requested")
	return nil
}

// DecideLeave approves or rejects a leave request.
func (s *AppointmentService) DecideLeave(ctx context.Context, id int64, status string) error {
	if status != models.LeaveApproved && status != models.LeaveRejected {
		return ErrInvalidDecision
	}
	err := s.repo.DecideLeave(ctx, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Info().Int64("leave_id", id).Str("status", status).Msg("leave decided")
	return nil
}

// RecordPayment persists the payment row referencing the appointment.
func (s *AppointmentService) RecordPayment(ctx context.Context, p *models.Payment) error {
	if _, err := s.get(ctx, p.AppointmentID); err != nil {
		return err
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return err
	}
	_ = s.bus.PublishJSON(events.TypePaymentRecorded, p)
	s.logger.Info().
		Int64("payment_id", p.ID).
		Int64("appointment_id", p.AppointmentID).
		Int64("amount", p.Amount).
		Msg("payment recorded")
	return nil
}

// PatientPayments lists a patient's payment history.
func (s *AppointmentService) PatientPayments(ctx context.Context, patientID string) ([]models.Payment, error) {
	return s.repo.GetPatientPayments(ctx, patientID)
}

func (s *AppointmentService) transition(ctx context.Context, id int64, status string) (*models.Appointment, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive() {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.UpdateAppointmentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.Status = status
	metrics.IncAppointmentStatus(status)
	return a, nil
}

func (s *AppointmentService) get(ctx context.Context, id int64) (*models.Appointment, error) {
	a, err := s.repo.GetAppointment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// rejectPastSlot refuses same-day slots whose start is not strictly in
// the future. Future dates pass without a time-of-day check.
func (s *AppointmentService) rejectPastSlot(date time.Time, slot string) error {
	now := s.now()
	if date.Year() != now.Year() || date.YearDay() != now.YearDay() {
		return nil
	}
	start, err := slots.StartOnDate(date, slot)
	if err != nil {
		return ErrUnknownSlot
	}
	if !start.After(now) {
		return ErrPastSlot
	}
	return nil
}
