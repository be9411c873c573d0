package sheets

import (
	"testing"
	"time"

	"ecare/internal/models"
)

func TestFilterActiveAppointments(t *testing.T) {
	s := &SheetsService{}

	appointments := []models.Appointment{
		{ID: 1, Status: models.StatusScheduled},
		{ID: 2, Status: models.StatusRescheduled},
		{ID: 3, Status: models.StatusCanceled},
		{ID: 4, Status: models.StatusCompleted},
	}

	active := s.filterActiveAppointments(appointments)

	if len(active) != 3 {
		t.Errorf("Expected 3 active appointments, got %d", len(active))
	}

	for _, a := range active {
		if a.Status == models.StatusCanceled {
			t.Errorf("Canceled appointment found in active list")
		}
	}
}

func TestAppointmentRowValues(t *testing.T) {
	createdAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)

	a := &models.Appointment{
		ID:        123,
		DoctorID:  "doc-1",
		PatientID: "pat-1",
		Date:      "2025-06-03",
		TimeSlot:  "9:30 AM",
		Status:    models.StatusScheduled,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	values := appointmentRowValues(a)

	expected := []interface{}{
		int64(123),
		"doc-1",
		"pat-1",
		"2025-06-03",
		"9:30 AM",
		"scheduled",
		"2025-06-01 10:00:00",
		"2025-06-02 11:00:00",
	}

	if len(values) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(values))
	}

	for i, v := range values {
		if v != expected[i] {
			t.Errorf("At index %d: expected %v, got %v", i, expected[i], v)
		}
	}
}

func TestCacheOperations(t *testing.T) {
	s := &SheetsService{
		rowCache: make(map[int64]int),
	}

	s.setCachedRow(100, 5)
	row, ok := s.getCachedRow(100)
	if !ok || row != 5 {
		t.Errorf("Expected row 5, got %d (ok=%v)", row, ok)
	}

	s.deleteCachedRow(100)
	if _, ok = s.getCachedRow(100); ok {
		t.Errorf("Expected row to be deleted from cache")
	}

	s.setCachedRow(200, 10)
	s.ClearCache()
	if _, ok = s.getCachedRow(200); ok {
		t.Errorf("Expected cache to be cleared")
	}
}
