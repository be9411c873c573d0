package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"ecare/internal/models"
)

// Store is the slice of the database the exporter reads.
type Store interface {
	GetAppointmentsByDateRange(ctx context.Context, from, to string) ([]models.Appointment, error)
	GetPaymentsByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error)
}

// Exporter builds a two-sheet workbook for a reporting period:
// appointments by visit date and payments by record time.
type Exporter struct {
	store     Store
	newWriter func() ExcelWriter
}

// NewExporter creates an exporter over the store.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store, newWriter: NewExcelizeWriter}
}

// Export writes the report for [from, to] (inclusive dates, YYYY-MM-DD).
func (e *Exporter) Export(ctx context.Context, from, to string, out io.Writer) error {
	fromDay, err := time.Parse("2006-01-02", from)
	if err != nil {
		return fmt.Errorf("parse from date: %w", err)
	}
	toDay, err := time.Parse("2006-01-02", to)
	if err != nil {
		return fmt.Errorf("parse to date: %w", err)
	}

	w := e.newWriter()
	defer w.Close()

	if err := e.writeAppointments(ctx, w, from, to); err != nil {
		return err
	}
	if err := e.writePayments(ctx, w, fromDay, toDay.AddDate(0, 0, 1)); err != nil {
		return err
	}
	return w.Save(out)
}

func (e *Exporter) writeAppointments(ctx context.Context, w ExcelWriter, from, to string) error {
	appointments, err := e.store.GetAppointmentsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}

	if err := w.AddSheet("Appointments"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"ID", "Doctor", "Patient", "Date", "Slot", "Status", "Created"}); err != nil {
		return err
	}
	for _, a := range appointments {
		row := []interface{}{
			a.ID, a.DoctorID, a.PatientID, a.Date, a.TimeSlot, a.Status,
			a.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writePayments(ctx context.Context, w ExcelWriter, from, to time.Time) error {
	payments, err := e.store.GetPaymentsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}

	if err := w.AddSheet("Payments"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"ID", "Patient", "Appointment", "Amount (INR)", "Recorded"}); err != nil {
		return err
	}

	var total int64
	for _, p := range payments {
		total += p.Amount
		row := []interface{}{
			p.ID, p.PatientID, p.AppointmentID, p.Amount,
			p.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.WriteRow([]interface{}{"", "", "Total", total, ""})
}
