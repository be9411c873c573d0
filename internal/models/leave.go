package models

import "time"

// Leave statuses.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// DoctorLeave represents a doctor's leave request. Only approved leaves
// block availability.
type DoctorLeave struct {
	ID        int64     `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	StartDate string    `json:"start_date"` // YYYY-MM-DD, inclusive
	EndDate   string    `json:"end_date"`   // YYYY-MM-DD, inclusive
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Covers reports whether the leave spans the given date (YYYY-MM-DD).
// Date strings in this format compare correctly lexicographically.
func (l *DoctorLeave) Covers(date string) bool {
	return l.StartDate <= date && date <= l.EndDate
}
