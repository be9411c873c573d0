package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecare/internal/audit"
	"ecare/internal/database"
	"ecare/internal/events"
	"ecare/internal/models"
	"ecare/internal/payment"
	"ecare/internal/service"
	"ecare/internal/slots"
)

const (
	testAPIKey    = "valid-key"
	testKeySecret = "test-secret"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(io.Discard)
	svc := service.NewAppointmentService(db, events.NewEventBus(), &logger)
	gateway := payment.NewGateway("test-key", testKeySecret, "")

	server := NewHTTPServer(0, svc, gateway, audit.NewExporter(db), testAPIKey, 200, &logger)
	srv := httptest.NewServer(server.server.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("x-api-key", testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// futureDate picks a date a few days out so same-day slot filtering never
// interferes with the test.
func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestAuthRequired(t *testing.T) {
	srv := setupTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/appointments?patientId=p1", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListAppointments(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)

	resp := doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		AppointmentDate: date,
		TimeSlot:        "9:30 AM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[models.Appointment](t, resp)
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusScheduled, created.Status)

	// Same tuple again conflicts.
	resp = doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-2",
		AppointmentDate: date,
		TimeSlot:        "9:30 AM",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/appointments?patientId=pat-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeJSON[struct {
		Appointments []models.Appointment `json:"appointments"`
	}](t, resp)
	require.Len(t, list.Appointments, 1)
	assert.Equal(t, created.ID, list.Appointments[0].ID)
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)

	resp := doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		AppointmentDate: date,
		TimeSlot:        "10:00 AM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/availability?doctorId=doc-1&date="+date, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av := decodeJSON[models.Availability](t, resp)
	assert.False(t, av.Unavailable)
	assert.Equal(t, []string{"10:00 AM"}, av.UnavailableSlots)

	resp = doRequest(t, srv, http.MethodGet, "/api/availability?doctorId=doc-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCancelAndReschedule(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)
	newDate := futureDate(4)

	resp := doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		AppointmentDate: date,
		TimeSlot:        "9:30 AM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[models.Appointment](t, resp)

	path := fmt.Sprintf("/api/appointments/%d/reschedule", created.ID)
	resp = doRequest(t, srv, http.MethodPut, path, RescheduleRequest{
		AppointmentDate: newDate,
		TimeSlot:        "11:00 AM",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeJSON[struct {
		Appointment models.Appointment `json:"appointment"`
	}](t, resp)
	assert.Equal(t, newDate, res.Appointment.Date)
	assert.Equal(t, "11:00 AM", res.Appointment.TimeSlot)
	assert.Equal(t, models.StatusRescheduled, res.Appointment.Status)

	path = fmt.Sprintf("/api/appointments/%d/cancel", created.ID)
	resp = doRequest(t, srv, http.MethodPut, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Canceling again is an invalid transition.
	resp = doRequest(t, srv, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The slot is free again after cancel.
	resp = doRequest(t, srv, http.MethodGet, "/api/availability?doctorId=doc-1&date="+newDate, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av := decodeJSON[models.Availability](t, resp)
	assert.Empty(t, av.UnavailableSlots)
}

func TestAppointmentActionNotFound(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodPut, "/api/appointments/9999/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/api/appointments/abc/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/api/appointments/1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPaymentVerifyAndSave(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)

	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte("order_1|pay_1"))
	sig := hex.EncodeToString(mac.Sum(nil))

	resp := doRequest(t, srv, http.MethodPost, "/api/payment/verify", PaymentVerifyRequest{
		RazorpayOrderID:   "order_1",
		RazorpayPaymentID: "pay_1",
		RazorpaySignature: sig,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verdict := decodeJSON[models.PaymentVerification](t, resp)
	assert.True(t, verdict.Success)

	resp = doRequest(t, srv, http.MethodPost, "/api/payment/verify", PaymentVerifyRequest{
		RazorpayOrderID:   "order_1",
		RazorpayPaymentID: "pay_2",
		RazorpaySignature: sig,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	verdict = decodeJSON[models.PaymentVerification](t, resp)
	assert.False(t, verdict.Success)

	// Save requires an existing appointment.
	resp = doRequest(t, srv, http.MethodPost, "/api/payment/save", PaymentSaveRequest{
		UserID: "pat-1", AppointmentID: 999, Amount: 200,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID:        "doc-1",
		PatientID:       "pat-1",
		AppointmentDate: date,
		TimeSlot:        "9:30 AM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[models.Appointment](t, resp)

	resp = doRequest(t, srv, http.MethodPost, "/api/payment/save", PaymentSaveRequest{
		UserID: "pat-1", AppointmentID: created.ID, Amount: 200,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/payments?patientId=pat-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payments := decodeJSON[struct {
		Payments []models.Payment `json:"payments"`
	}](t, resp)
	require.Len(t, payments.Payments, 1)
	assert.Equal(t, created.ID, payments.Payments[0].AppointmentID)
}

func TestLeaveLifecycle(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)

	// File a leave request; it starts pending and does not block booking.
	resp := doRequest(t, srv, http.MethodPost, "/api/leaves", LeaveRequest{
		DoctorID: "doc-1", StartDate: date, EndDate: date, Reason: "conference",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	leave := decodeJSON[models.DoctorLeave](t, resp)
	assert.NotZero(t, leave.ID)
	assert.Equal(t, models.LeavePending, leave.Status)

	resp = doRequest(t, srv, http.MethodGet, "/api/availability?doctorId=doc-1&date="+date, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av := decodeJSON[models.Availability](t, resp)
	assert.False(t, av.Unavailable, "pending leave must not block the day")

	// Approval takes the whole day off.
	path := fmt.Sprintf("/api/leaves/%d", leave.ID)
	resp = doRequest(t, srv, http.MethodPut, path, LeaveDecisionRequest{Status: models.LeaveApproved})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/availability?doctorId=doc-1&date="+date, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	av = decodeJSON[models.Availability](t, resp)
	assert.True(t, av.Unavailable)
	assert.Equal(t, slots.Catalog, av.UnavailableSlots)

	resp = doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID: "doc-1", PatientID: "pat-1", AppointmentDate: date, TimeSlot: "9:30 AM",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaveValidation(t *testing.T) {
	srv := setupTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/leaves", LeaveRequest{
		DoctorID: "doc-1", StartDate: futureDate(5), EndDate: futureDate(3),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPut, "/api/leaves/999", LeaveDecisionRequest{Status: models.LeaveApproved})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/api/leaves", LeaveRequest{
		DoctorID: "doc-1", StartDate: futureDate(3), EndDate: futureDate(3),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	leave := decodeJSON[models.DoctorLeave](t, resp)

	path := fmt.Sprintf("/api/leaves/%d", leave.ID)
	resp = doRequest(t, srv, http.MethodPut, path, LeaveDecisionRequest{Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDoctorAppointmentsEndpoint(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)

	for _, slot := range []string{"9:30 AM", "11:00 AM"} {
		resp := doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
			DoctorID: "doc-1", PatientID: "pat-" + slot, AppointmentDate: date, TimeSlot: slot,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doRequest(t, srv, http.MethodGet, "/api/doctor/appointments?doctorId=doc-1&date="+date, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeJSON[struct {
		Appointments []models.Appointment `json:"appointments"`
	}](t, resp)
	require.Len(t, list.Appointments, 2)
	assert.Equal(t, "9:30 AM", list.Appointments[0].TimeSlot)

	resp = doRequest(t, srv, http.MethodGet, "/api/doctor/appointments?doctorId=doc-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportsEndpoint(t *testing.T) {
	srv := setupTestServer(t)
	date := futureDate(3)

	resp := doRequest(t, srv, http.MethodPost, "/api/appointments", CreateAppointmentRequest{
		DoctorID: "doc-1", PatientID: "pat-1", AppointmentDate: date, TimeSlot: "9:30 AM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	from := time.Now().Format("2006-01-02")
	to := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	resp = doRequest(t, srv, http.MethodGet, "/api/reports?from="+from+"&to="+to, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)

	resp = doRequest(t, srv, http.MethodGet, "/api/reports?from=bad&to="+to, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doRequest(t, srv, http.MethodGet, "/api/reports", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentOrderFeeEnforced(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "order_abc", "amount": 20000})
	}))
	t.Cleanup(backend.Close)

	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(io.Discard)
	svc := service.NewAppointmentService(db, events.NewEventBus(), &logger)
	gateway := payment.NewGateway("test-key", testKeySecret, backend.URL)
	server := NewHTTPServer(0, svc, gateway, audit.NewExporter(db), testAPIKey, 200, &logger)
	srv := httptest.NewServer(server.server.Handler)
	t.Cleanup(srv.Close)

	// Omitted amount defaults to the configured fee.
	resp := doRequest(t, srv, http.MethodPost, "/api/payment/order", PaymentOrderRequest{})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decodeJSON[models.PaymentOrder](t, resp)
	assert.Equal(t, "order_abc", order.OrderID)
	assert.Equal(t, int64(20000), order.Amount)

	// Matching amount passes; anything else is rejected.
	resp = doRequest(t, srv, http.MethodPost, "/api/payment/order", PaymentOrderRequest{Amount: 20000})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doRequest(t, srv, http.MethodPost, "/api/payment/order", PaymentOrderRequest{Amount: 5000})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
