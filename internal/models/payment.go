package models

import "time"

// Payment is a persisted record of a verified consultation payment.
// Amount is stored in rupees; the gateway deals in paise.
type Payment struct {
	ID            int64     `json:"id"`
	PatientID     string    `json:"patient_id"`
	AppointmentID int64     `json:"appointment_id"`
	Amount        int64     `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentOrder is the gateway order handed to the checkout widget.
type PaymentOrder struct {
	OrderID string `json:"orderId"`
	Amount  int64  `json:"amount"` // paise
}

// PaymentVerification is the server's verdict on a completed checkout.
type PaymentVerification struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
