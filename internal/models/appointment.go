package models

import "time"

// Appointment statuses.
const (
	StatusScheduled      = "scheduled"
	StatusRescheduled    = "rescheduled"
	StatusCanceled       = "canceled"
	StatusCompleted      = "completed"
	StatusAbsent         = "absent"
	StatusInConsultation = "in_consultation"
)

// Appointment represents a booked consultation slot.
type Appointment struct {
	ID        int64     `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	Date      string    `json:"appointment_date"` // YYYY-MM-DD
	TimeSlot  string    `json:"time_slot"`        // catalog label, e.g. "9:30 AM"
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the appointment still occupies its slot.
// Canceled appointments free the (doctor, date, slot) tuple.
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCanceled
}

// CanReschedule reports whether the appointment may move to a new slot.
func (a *Appointment) CanReschedule() bool {
	switch a.Status {
	case StatusScheduled, StatusRescheduled:
		return true
	}
	return false
}

// CanCancel reports whether the appointment may be canceled.
func (a *Appointment) CanCancel() bool {
	switch a.Status {
	case StatusScheduled, StatusRescheduled:
		return true
	}
	return false
}

// Availability is the unavailable-slot report for a (doctor, date) pair.
// Unavailable set means the whole day is off (approved leave); the slot
// list then covers the entire catalog.
type Availability struct {
	UnavailableSlots []string `json:"unavailableSlots"`
	Unavailable      bool     `json:"unavailable"`
	Message          string   `json:"message,omitempty"`
}

// IsSlotTaken reports whether the slot label is in the unavailable set.
func (av *Availability) IsSlotTaken(slot string) bool {
	if av.Unavailable {
		return true
	}
	for _, s := range av.UnavailableSlots {
		if s == slot {
			return true
		}
	}
	return false
}
