package booking

import (
	"context"
	"errors"
	"sync"

	"ecare/internal/models"
)

var (
	// ErrNotInSchedule is returned when patching an appointment the list
	// does not hold.
	ErrNotInSchedule = errors.New("appointment not in schedule")
	// ErrCannotReschedule is returned for appointments whose status no
	// longer allows moving them.
	ErrCannotReschedule = errors.New("appointment cannot be rescheduled")
)

// ScheduleAPI is the slice of the HTTP client the schedule list needs.
type ScheduleAPI interface {
	ListAppointments(ctx context.Context, patientID string) ([]models.Appointment, error)
	CancelAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	RescheduleAppointment(ctx context.Context, id int64, date, slot string) (*models.Appointment, error)
}

// ScheduleList holds a patient's upcoming appointments and keeps them in
// step with cancel and reschedule calls. Mutations patch the one affected
// entry locally instead of re-fetching the whole list.
type ScheduleList struct {
	api       ScheduleAPI
	patientID string

	mu    sync.Mutex
	items []models.Appointment
}

// NewScheduleList creates an empty schedule for a patient.
func NewScheduleList(api ScheduleAPI, patientID string) *ScheduleList {
	return &ScheduleList{api: api, patientID: patientID}
}

// Load fetches the patient's appointments from the API.
func (l *ScheduleList) Load(ctx context.Context) error {
	items, err := l.api.ListAppointments(ctx, l.patientID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	return nil
}

// Items returns a copy of the current list.
func (l *ScheduleList) Items() []models.Appointment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Appointment, len(l.items))
	copy(out, l.items)
	return out
}

// Cancel cancels one appointment and removes exactly that entry locally.
// The other entries are untouched.
func (l *ScheduleList) Cancel(ctx context.Context, id int64) error {
	if _, ok := l.find(id); !ok {
		return ErrNotInSchedule
	}
	if _, err := l.api.CancelAppointment(ctx, id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, a := range l.items {
		if a.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	return nil
}

// Reschedule moves one appointment to the picker's selected date and slot
// and patches exactly that entry's date, slot and status locally.
func (l *ScheduleList) Reschedule(ctx context.Context, id int64, picker *SlotPicker) (*models.Appointment, error) {
	current, ok := l.find(id)
	if !ok {
		return nil, ErrNotInSchedule
	}
	if !current.CanReschedule() {
		return nil, ErrCannotReschedule
	}

	date, slot, selected := picker.Selection()
	if !selected {
		return nil, ErrNothingSelected
	}

	updated, err := l.api.RescheduleAppointment(ctx, id, date, slot)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Date = updated.Date
			l.items[i].TimeSlot = updated.TimeSlot
			l.items[i].Status = updated.Status
			break
		}
	}
	return updated, nil
}

func (l *ScheduleList) find(id int64) (models.Appointment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.items {
		if a.ID == id {
			return a, true
		}
	}
	return models.Appointment{}, false
}
