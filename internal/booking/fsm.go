// Package booking drives the patient-facing slot selection and payment flow.
package booking

import (
	"context"
	"sync"
	"time"

	"ecare/internal/models"
	"ecare/internal/slots"
)

// State represents the current state of the slot selection dialog.
type State string

const (
	StateNoDate       State = "no_date"
	StateLoadingSlots State = "loading_slots"
	StateSlotsLoaded  State = "slots_loaded"
	StateSlotSelected State = "slot_selected"
)

// AvailabilityClient fetches unavailable slots for a doctor and date.
type AvailabilityClient interface {
	GetAvailability(ctx context.Context, doctorID, date string) (*models.Availability, error)
}

// SlotPicker tracks a patient's progress through date and slot selection
// for one doctor. Each date selection bumps an epoch; availability
// responses that come back for an older epoch are discarded, so a slow
// fetch can never overwrite the slots of a newer date.
type SlotPicker struct {
	client AvailabilityClient
	now    func() time.Time
	offDay time.Weekday

	mu        sync.Mutex
	state     State
	doctorID  string
	date      slots.CalendarDay
	available []string
	selected  string
	warning   string
	epoch     uint64
}

// NewSlotPicker creates a picker for one doctor.
func NewSlotPicker(client AvailabilityClient, doctorID string, offDay time.Weekday) *SlotPicker {
	return &SlotPicker{
		client:   client,
		now:      time.Now,
		offDay:   offDay,
		state:    StateNoDate,
		doctorID: doctorID,
	}
}

// Days returns the next n bookable calendar days.
func (p *SlotPicker) Days(n int) []slots.CalendarDay {
	return slots.NextBookableDays(p.now(), n, p.offDay)
}

// State returns the current dialog state.
func (p *SlotPicker) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Warning returns the degraded-availability notice, if any.
func (p *SlotPicker) Warning() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.warning
}

// AvailableSlots returns the selectable slots for the chosen date.
func (p *SlotPicker) AvailableSlots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.available))
	copy(out, p.available)
	return out
}

// SelectDate picks a date, clears any selected slot and loads the
// selectable slots for it. When the availability fetch fails the picker
// falls back to the full time-filtered catalog and records a warning, so
// the patient can keep booking; the conflict check on create still holds.
func (p *SlotPicker) SelectDate(ctx context.Context, day slots.CalendarDay) ([]string, error) {
	p.mu.Lock()
	p.epoch++
	myEpoch := p.epoch
	p.state = StateLoadingSlots
	p.date = day
	p.selected = ""
	p.available = nil
	p.warning = ""
	p.mu.Unlock()

	av, err := p.client.GetAvailability(ctx, p.doctorID, day.ISODate)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != myEpoch {
		// A newer date selection superseded this fetch.
		return nil, ErrStaleSelection
	}

	var selectable []string
	switch {
	case err != nil:
		p.warning = "Could not confirm the doctor's schedule. Slot availability may be out of date."
		selectable = slots.FilterSelectable(nil, false, day.Date, p.now())
	default:
		if av.Unavailable {
			p.warning = av.Message
		}
		selectable = slots.FilterSelectable(av.UnavailableSlots, av.Unavailable, day.Date, p.now())
	}

	p.available = selectable
	p.state = StateSlotsLoaded

	out := make([]string, len(selectable))
	copy(out, selectable)
	return out, nil
}

// SelectSlot picks one of the loaded slots.
func (p *SlotPicker) SelectSlot(label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateSlotsLoaded && p.state != StateSlotSelected {
		return ErrNoDateSelected
	}
	for _, s := range p.available {
		if s == label {
			p.selected = label
			p.state = StateSlotSelected
			return nil
		}
	}
	return ErrSlotNotSelectable
}

// Selection returns the chosen date and slot once both are set.
func (p *SlotPicker) Selection() (date, slot string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateSlotSelected {
		return "", "", false
	}
	return p.date.ISODate, p.selected, true
}

// Reset clears the selection and returns tomorrow's ISO date, the day
// the dialog jumps to after a successful booking.
func (p *SlotPicker) Reset() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.state = StateNoDate
	p.date = slots.CalendarDay{}
	p.available = nil
	p.selected = ""
	p.warning = ""
	return slots.Tomorrow(p.now())
}
