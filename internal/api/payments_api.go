package api

import (
	"net/http"

	"ecare/internal/metrics"
	"ecare/internal/models"
)

// PaymentOrderRequest is the body for POST /api/payment/order.
// Amount is in paise, as the checkout widget expects.
type PaymentOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentVerifyRequest carries the three checkout-provided fields.
type PaymentVerifyRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

// PaymentSaveRequest is the body for POST /api/payment/save.
type PaymentSaveRequest struct {
	UserID        string `json:"userId"`
	AppointmentID int64  `json:"appointmentId"`
	Amount        int64  `json:"amount"` // rupees
}

// handlePaymentOrder creates a gateway order.
func (s *HTTPServer) handlePaymentOrder(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_order")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PaymentOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// The booking fee is fixed server-side; an omitted amount defaults to
	// it and anything else is rejected.
	if req.Amount == 0 {
		req.Amount = s.feePaise
	}
	if req.Amount != s.feePaise {
		writeError(w, http.StatusBadRequest, "amount must match the booking fee")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	order, err := s.gateway.CreateOrder(r.Context(), req.Amount, req.Currency)
	if err != nil {
		s.log.Error().Err(err).Int64("amount", req.Amount).Msg("gateway order failed")
		writeError(w, http.StatusInternalServerError, "failed to create payment order")
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// handlePaymentVerify checks the checkout signature. Verification failure
// is a 400 with success=false, mirroring the gateway contract.
func (s *HTTPServer) handlePaymentVerify(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_verify")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PaymentVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		writeJSON(w, http.StatusBadRequest, models.PaymentVerification{
			Success: false,
			Message: "Missing required payment details",
		})
		return
	}

	if !s.gateway.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		metrics.IncPaymentVerification("failed")
		s.log.Warn().Str("order_id", req.RazorpayOrderID).Msg("payment verification failed")
		writeJSON(w, http.StatusBadRequest, models.PaymentVerification{
			Success: false,
			Message: "Payment verification failed",
		})
		return
	}

	metrics.IncPaymentVerification("verified")
	writeJSON(w, http.StatusOK, models.PaymentVerification{
		Success: true,
		Message: "Payment verified successfully",
	})
}

// handlePaymentSave persists a payment record for an appointment.
func (s *HTTPServer) handlePaymentSave(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("payment_save")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PaymentSaveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.AppointmentID == 0 || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "missing required payment details")
		return
	}

	p := &models.Payment{
		PatientID:     req.UserID,
		AppointmentID: req.AppointmentID,
		Amount:        req.Amount,
	}
	if err := s.svc.RecordPayment(r.Context(), p); err != nil {
		s.writeServiceError(w, err, "save payment")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Payment details saved successfully",
		"payment": p,
	})
}

// handlePayments lists a patient's payment history.
// GET /api/payments?patientId=...
func (s *HTTPServer) handlePayments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_payments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	patientID := r.URL.Query().Get("patientId")
	if patientID == "" {
		writeError(w, http.StatusBadRequest, "patientId is required")
		return
	}

	payments, err := s.svc.PatientPayments(r.Context(), patientID)
	if err != nil {
		s.log.Error().Err(err).Str("patient_id", patientID).Msg("list payments failed")
		writeError(w, http.StatusInternalServerError, "failed to fetch payments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}
