package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ecare/internal/models"
)

// CreateAppointment inserts a new appointment and fills its ID and
// timestamps. Status defaults to scheduled when empty.
func (db *DB) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if a.Status == "" {
		a.Status = models.StatusScheduled
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO appointments (doctor_id, patient_id, appointment_date, time_slot, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.DoctorID, a.PatientID, a.Date, a.TimeSlot, a.Status, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAppointment returns the appointment by id, or sql.ErrNoRows.
func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	var a models.Appointment
	err := db.QueryRowContext(ctx, `
		SELECT id, doctor_id, patient_id, appointment_date, time_slot, status, created_at, updated_at
		FROM appointments WHERE id = ?`, id,
	).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.TimeSlot, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// HasActiveAppointment reports whether a non-canceled appointment already
// holds the (doctor, date, slot) tuple.
func (db *DB) HasActiveAppointment(ctx context.Context, doctorID, date, slot string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = ? AND appointment_date = ? AND time_slot = ? AND status != ?`,
		doctorID, date, slot, models.StatusCanceled,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count active appointments: %w", err)
	}
	return count > 0, nil
}

// GetBookedSlots returns the time slots of non-canceled appointments for
// a doctor on a date, in catalog insertion order.
func (db *DB) GetBookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT time_slot FROM appointments
		WHERE doctor_id = ? AND appointment_date = ? AND status != ?
		ORDER BY id`,
		doctorID, date, models.StatusCanceled,
	)
	if err != nil {
		return nil, fmt.Errorf("query booked slots: %w", err)
	}
	defer rows.Close()

	slots := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// GetPatientAppointments returns a patient's appointments, newest date
// first. Completed ones are excluded when excludeCompleted is set (the
// scheduled-appointments page shows only upcoming work).
func (db *DB) GetPatientAppointments(ctx context.Context, patientID string, excludeCompleted bool) ([]models.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, appointment_date, time_slot, status, created_at, updated_at
		FROM appointments WHERE patient_id = ?`
	if excludeCompleted {
		query += ` AND status != '` + models.StatusCompleted + `'`
	}
	query += ` ORDER BY appointment_date DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("query patient appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// GetDoctorAppointments returns non-canceled appointments for a doctor on
// a date.
func (db *DB) GetDoctorAppointments(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, doctor_id, patient_id, appointment_date, time_slot, status, created_at, updated_at
		FROM appointments
		WHERE doctor_id = ? AND appointment_date = ? AND status != ?
		ORDER BY id`,
		doctorID, date, models.StatusCanceled,
	)
	if err != nil {
		return nil, fmt.Errorf("query doctor appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// GetAppointmentsByDateRange returns all appointments within [start, end]
// (ISO dates, inclusive), for reporting.
func (db *DB) GetAppointmentsByDateRange(ctx context.Context, start, end string) ([]models.Appointment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, doctor_id, patient_id, appointment_date, time_slot, status, created_at, updated_at
		FROM appointments
		WHERE appointment_date >= ? AND appointment_date <= ?
		ORDER BY appointment_date, id`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query appointments by range: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// UpdateAppointmentStatus sets the status of an appointment.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return requireRow(res)
}

// UpdateAppointmentSlot moves an appointment to a new date and slot and
// sets the given status (rescheduled).
func (db *DB) UpdateAppointmentSlot(ctx context.Context, id int64, date, slot, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE appointments SET appointment_date = ?, time_slot = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		date, slot, status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update appointment slot: %w", err)
	}
	return requireRow(res)
}

func scanAppointments(rows *sql.Rows) ([]models.Appointment, error) {
	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.TimeSlot, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
