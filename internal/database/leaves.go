package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ecare/internal/models"
)

// CreateLeave inserts a leave request.
func (db *DB) CreateLeave(ctx context.Context, l *models.DoctorLeave) error {
	if l.Status == "" {
		l.Status = models.LeavePending
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO doctor_leaves (doctor_id, start_date, end_date, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.DoctorID, l.StartDate, l.EndDate, l.Reason, l.Status, now,
	)
	if err != nil {
		return fmt.Errorf("insert leave: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	l.CreatedAt = now
	return nil
}

// DecideLeave approves or rejects a pending leave request.
func (db *DB) DecideLeave(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE doctor_leaves SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("decide leave: %w", err)
	}
	return requireRow(res)
}

// GetApprovedLeave returns the approved leave covering the date for the
// doctor, or nil when there is none.
func (db *DB) GetApprovedLeave(ctx context.Context, doctorID, date string) (*models.DoctorLeave, error) {
	var l models.DoctorLeave
	var reason sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, doctor_id, start_date, end_date, reason, status, created_at
		FROM doctor_leaves
		WHERE doctor_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		LIMIT 1`,
		doctorID, models.LeaveApproved, date, date,
	).Scan(&l.ID, &l.DoctorID, &l.StartDate, &l.EndDate, &reason, &l.Status, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query approved leave: %w", err)
	}
	if reason.Valid {
		l.Reason = reason.String
	}
	return &l, nil
}
