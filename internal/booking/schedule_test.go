package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecare/internal/models"
)

type fakeScheduleAPI struct {
	listed    []models.Appointment
	cancelErr error
	reschErr  error
	canceled  []int64
}

func (f *fakeScheduleAPI) ListAppointments(context.Context, string) ([]models.Appointment, error) {
	return f.listed, nil
}

func (f *fakeScheduleAPI) CancelAppointment(_ context.Context, id int64) (*models.Appointment, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	f.canceled = append(f.canceled, id)
	return &models.Appointment{ID: id, Status: models.StatusCanceled}, nil
}

func (f *fakeScheduleAPI) RescheduleAppointment(_ context.Context, id int64, date, slot string) (*models.Appointment, error) {
	if f.reschErr != nil {
		return nil, f.reschErr
	}
	return &models.Appointment{ID: id, Date: date, TimeSlot: slot, Status: models.StatusRescheduled}, nil
}

func testSchedule(t *testing.T, api *fakeScheduleAPI) *ScheduleList {
	t.Helper()
	api.listed = []models.Appointment{
		{ID: 1, DoctorID: "doc-1", Date: "2025-06-03", TimeSlot: "9:30 AM", Status: models.StatusScheduled},
		{ID: 2, DoctorID: "doc-2", Date: "2025-06-04", TimeSlot: "11:00 AM", Status: models.StatusScheduled},
		{ID: 3, DoctorID: "doc-1", Date: "2025-06-05", TimeSlot: "2:00 PM", Status: models.StatusInConsultation},
	}
	l := NewScheduleList(api, "pat-1")
	require.NoError(t, l.Load(context.Background()))
	return l
}

func TestCancelRemovesOnlyThatEntry(t *testing.T) {
	api := &fakeScheduleAPI{}
	l := testSchedule(t, api)

	require.NoError(t, l.Cancel(context.Background(), 2))
	assert.Equal(t, []int64{2}, api.canceled)

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(3), items[1].ID)
}

func TestCancelFailureLeavesListIntact(t *testing.T) {
	api := &fakeScheduleAPI{cancelErr: errors.New("http 500")}
	l := testSchedule(t, api)

	assert.Error(t, l.Cancel(context.Background(), 2))
	assert.Len(t, l.Items(), 3)
}

func TestCancelUnknownID(t *testing.T) {
	api := &fakeScheduleAPI{}
	l := testSchedule(t, api)
	assert.ErrorIs(t, l.Cancel(context.Background(), 99), ErrNotInSchedule)
	assert.Empty(t, api.canceled)
}

func TestReschedulePatchesOnlyThatEntry(t *testing.T) {
	api := &fakeScheduleAPI{}
	l := testSchedule(t, api)

	p := newTestPicker(&fakeAvailability{})
	_, err := p.SelectDate(context.Background(), day(p, 3))
	require.NoError(t, err)
	require.NoError(t, p.SelectSlot("12:30 PM"))

	updated, err := l.Reschedule(context.Background(), 1, p)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRescheduled, updated.Status)

	items := l.Items()
	assert.Equal(t, "2025-06-05", items[0].Date)
	assert.Equal(t, "12:30 PM", items[0].TimeSlot)
	assert.Equal(t, models.StatusRescheduled, items[0].Status)

	// The other entries are untouched.
	assert.Equal(t, "2025-06-04", items[1].Date)
	assert.Equal(t, models.StatusScheduled, items[1].Status)
}

func TestRescheduleGuards(t *testing.T) {
	api := &fakeScheduleAPI{}
	l := testSchedule(t, api)

	p := newTestPicker(&fakeAvailability{})

	// No selection yet.
	_, err := l.Reschedule(context.Background(), 1, p)
	assert.ErrorIs(t, err, ErrNothingSelected)

	_, err = p.SelectDate(context.Background(), day(p, 3))
	require.NoError(t, err)
	require.NoError(t, p.SelectSlot("12:30 PM"))

	// In-consultation appointments cannot move.
	_, err = l.Reschedule(context.Background(), 3, p)
	assert.ErrorIs(t, err, ErrCannotReschedule)

	_, err = l.Reschedule(context.Background(), 99, p)
	assert.ErrorIs(t, err, ErrNotInSchedule)
}
