package database

import (
	"context"
	"fmt"
	"time"

	"ecare/internal/models"
)

// CreatePayment persists a payment record referencing its appointment.
func (db *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO payments (patient_id, appointment_id, amount, created_at)
		VALUES (?, ?, ?, ?)`,
		p.PatientID, p.AppointmentID, p.Amount, now,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = now
	return nil
}

// GetPaymentsByDateRange returns payments recorded in [from, to).
func (db *DB) GetPaymentsByDateRange(ctx context.Context, from, to time.Time) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, patient_id, appointment_id, amount, created_at
		FROM payments WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at, id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query payments by range: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.PatientID, &p.AppointmentID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// GetPatientPayments returns a patient's payments, newest first.
func (db *DB) GetPatientPayments(ctx context.Context, patientID string) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, patient_id, appointment_id, amount, created_at
		FROM payments WHERE patient_id = ?
		ORDER BY created_at DESC, id DESC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.PatientID, &p.AppointmentID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
