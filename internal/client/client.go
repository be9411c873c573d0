// Package client is a typed HTTP client for the booking API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ecare/internal/models"
)

// APIError carries the status and message of a non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// BookingClient is an HTTP client for the appointment and payment endpoints.
type BookingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewBookingClient constructs a client with baseURL and API key.
func NewBookingClient(baseURL, apiKey string) *BookingClient {
	return &BookingClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for availability reads.
// Cached entries go stale as soon as someone books, so the TTL should be
// short; booking calls invalidate the affected key.
func (c *BookingClient) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// GetAvailability fetches the unavailable slots for a doctor/date (YYYY-MM-DD).
func (c *BookingClient) GetAvailability(ctx context.Context, doctorID, date string) (*models.Availability, error) {
	endpoint := fmt.Sprintf("%s/api/availability?doctorId=%s&date=%s",
		c.baseURL, url.QueryEscape(doctorID), url.QueryEscape(date))
	cacheKey := availabilityKey(doctorID, date)
	var resp models.Availability

	if c.readCache(ctx, cacheKey, &resp) {
		return &resp, nil
	}

	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, resp)
	return &resp, nil
}

// CreateAppointment books a slot and returns the stored appointment.
type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctorId"`
	PatientID       string `json:"patientId"`
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
}

func (c *BookingClient) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*models.Appointment, error) {
	endpoint := fmt.Sprintf("%s/api/appointments", c.baseURL)
	var a models.Appointment
	if err := c.doPost(ctx, endpoint, req, &a); err != nil {
		return nil, err
	}
	c.dropCache(ctx, availabilityKey(req.DoctorID, req.AppointmentDate))
	return &a, nil
}

// ListAppointments returns a patient's appointments, completed ones excluded.
func (c *BookingClient) ListAppointments(ctx context.Context, patientID string) ([]models.Appointment, error) {
	endpoint := fmt.Sprintf("%s/api/appointments?patientId=%s", c.baseURL, url.QueryEscape(patientID))
	var wrap struct {
		Appointments []models.Appointment `json:"appointments"`
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	return wrap.Appointments, nil
}

// RescheduleAppointment moves an appointment to a new date and slot.
func (c *BookingClient) RescheduleAppointment(ctx context.Context, id int64, date, slot string) (*models.Appointment, error) {
	endpoint := fmt.Sprintf("%s/api/appointments/%d/reschedule", c.baseURL, id)
	body := map[string]string{"appointmentDate": date, "timeSlot": slot}
	var wrap struct {
		Appointment models.Appointment `json:"appointment"`
	}
	if err := c.doPut(ctx, endpoint, body, &wrap); err != nil {
		return nil, err
	}
	c.dropCache(ctx, availabilityKey(wrap.Appointment.DoctorID, date))
	return &wrap.Appointment, nil
}

// CancelAppointment marks an appointment canceled.
func (c *BookingClient) CancelAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	endpoint := fmt.Sprintf("%s/api/appointments/%d/cancel", c.baseURL, id)
	var wrap struct {
		Appointment models.Appointment `json:"appointment"`
	}
	if err := c.doPut(ctx, endpoint, nil, &wrap); err != nil {
		return nil, err
	}
	c.dropCache(ctx, availabilityKey(wrap.Appointment.DoctorID, wrap.Appointment.Date))
	return &wrap.Appointment, nil
}

// CreatePaymentOrder opens a gateway order for the given amount in paise.
func (c *BookingClient) CreatePaymentOrder(ctx context.Context, amountPaise int64) (*models.PaymentOrder, error) {
	endpoint := fmt.Sprintf("%s/api/payment/order", c.baseURL)
	body := map[string]any{"amount": amountPaise, "currency": "INR"}
	var order models.PaymentOrder
	if err := c.doPost(ctx, endpoint, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPayment submits the checkout result for signature verification.
// A failed verification comes back as a verdict, not an error.
func (c *BookingClient) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*models.PaymentVerification, error) {
	endpoint := fmt.Sprintf("%s/api/payment/verify", c.baseURL)
	body := map[string]string{
		"razorpayOrderId":   orderID,
		"razorpayPaymentId": paymentID,
		"razorpaySignature": signature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 200 and 400 both carry a verdict body.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "payment verification unavailable"}
	}
	var verdict models.PaymentVerification
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// SavePayment records a completed payment against an appointment. Amount is
// in rupees.
func (c *BookingClient) SavePayment(ctx context.Context, userID string, appointmentID, amountRupees int64) error {
	endpoint := fmt.Sprintf("%s/api/payment/save", c.baseURL)
	body := map[string]any{
		"userId":        userID,
		"appointmentId": appointmentID,
		"amount":        amountRupees,
	}
	return c.doPost(ctx, endpoint, body, nil)
}

// ListPayments returns a patient's payment history.
func (c *BookingClient) ListPayments(ctx context.Context, patientID string) ([]models.Payment, error) {
	endpoint := fmt.Sprintf("%s/api/payments?patientId=%s", c.baseURL, url.QueryEscape(patientID))
	var wrap struct {
		Payments []models.Payment `json:"payments"`
	}
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	return wrap.Payments, nil
}

// HealthCheck checks if the booking API is reachable.
func (c *BookingClient) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

func availabilityKey(doctorID, date string) string {
	return fmt.Sprintf("availability:%s:%s", doctorID, date)
}

func (c *BookingClient) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *BookingClient) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *BookingClient) dropCache(ctx context.Context, key string) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	_ = c.redis.Del(ctx, key).Err()
}

func (c *BookingClient) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *BookingClient) doPost(ctx context.Context, endpoint string, body, out any) error {
	return c.doWithBody(ctx, http.MethodPost, endpoint, body, out)
}

func (c *BookingClient) doPut(ctx context.Context, endpoint string, body, out any) error {
	return c.doWithBody(ctx, http.MethodPut, endpoint, body, out)
}

func (c *BookingClient) doWithBody(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *BookingClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *BookingClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
