// Package sheets mirrors upcoming appointments into a Google spreadsheet
// for the clinic coordinators.
package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"ecare/internal/models"
)

const sheetName = "Appointments"

var headerRow = []interface{}{
	"ID", "Doctor", "Patient", "Date", "Slot", "Status", "Created", "Updated",
}

// SheetsService syncs appointments to one spreadsheet. Row positions are
// cached per appointment id so updates land on the right row without a
// full re-read.
type SheetsService struct {
	svc           *sheets.Service
	spreadsheetID string
	log           *zerolog.Logger

	mu       sync.Mutex
	rowCache map[int64]int
}

// NewSheetsService authorizes with a service-account credentials file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, log *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsService{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		log:           log,
		rowCache:      make(map[int64]int),
	}, nil
}

// SyncAppointments rewrites the sheet with the active appointments.
// Canceled ones drop out of the export.
func (s *SheetsService) SyncAppointments(ctx context.Context, appointments []models.Appointment) error {
	active := s.filterActiveAppointments(appointments)

	values := make([][]interface{}, 0, len(active)+1)
	values = append(values, headerRow)
	for i := range active {
		values = append(values, appointmentRowValues(&active[i]))
	}

	clearRange := fmt.Sprintf("%s!A:H", sheetName)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	vr := &sheets.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("%s!A1", sheetName), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.mu.Lock()
	s.rowCache = make(map[int64]int, len(active))
	for i := range active {
		// Row 1 is the header.
		s.rowCache[active[i].ID] = i + 2
	}
	s.mu.Unlock()

	s.log.Info().Int("rows", len(active)).Msg("appointments synced to sheet")
	return nil
}

// UpdateAppointment patches one appointment's row in place when its
// position is cached, falling back to appending at the end.
func (s *SheetsService) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	row, ok := s.getCachedRow(a.ID)
	vr := &sheets.ValueRange{Values: [][]interface{}{appointmentRowValues(a)}}

	if !ok {
		_, err := s.svc.Spreadsheets.Values.
			Append(s.spreadsheetID, fmt.Sprintf("%s!A:H", sheetName), vr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("append row: %w", err)
		}
		return nil
	}

	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("%s!A%d", sheetName, row), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", row, err)
	}
	return nil
}

func (s *SheetsService) filterActiveAppointments(appointments []models.Appointment) []models.Appointment {
	active := make([]models.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	return active
}

func appointmentRowValues(a *models.Appointment) []interface{} {
	return []interface{}{
		a.ID,
		a.DoctorID,
		a.PatientID,
		a.Date,
		a.TimeSlot,
		a.Status,
		a.CreatedAt.Format("2006-01-02 15:04:05"),
		a.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCachedRow(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache drops all cached row positions.
func (s *SheetsService) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rowCache = make(map[int64]int)
}
