package booking

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"ecare/internal/client"
	"ecare/internal/models"
)

var (
	ErrStaleSelection    = errors.New("date selection superseded")
	ErrNoDateSelected    = errors.New("no date selected")
	ErrSlotNotSelectable = errors.New("slot is not selectable")
	ErrNoSession         = errors.New("no patient session")
	ErrProfileIncomplete = errors.New("patient profile is incomplete")
	ErrNothingSelected   = errors.New("date and slot must be selected")
	ErrCheckoutAborted   = errors.New("checkout dismissed")
	ErrPaymentFailed     = errors.New("payment verification failed")

	// ErrPaymentUnrecorded signals the appointment was booked but the
	// payment row was not saved. Callers surface it as a warning, not a
	// booking failure.
	ErrPaymentUnrecorded = errors.New("appointment booked but payment record not saved")
)

// Session identifies the signed-in patient for the duration of the flow.
type Session struct {
	PatientID string
	Name      string
	Email     string
	Phone     string
}

// Valid reports whether the session can book.
func (s *Session) Valid() bool {
	return s != nil && s.PatientID != ""
}

// ProfileChecker reports whether a patient's profile is complete enough
// to book. Profile management itself lives elsewhere.
type ProfileChecker interface {
	ProfileComplete(ctx context.Context, patientID string) (bool, error)
}

// CheckoutProvider models the external payment widget. Checkout presents
// the order to the patient and returns the gateway's payment id and
// signature, or ErrCheckoutAborted when the patient dismisses it.
type CheckoutProvider interface {
	Checkout(ctx context.Context, order models.PaymentOrder) (paymentID, signature string, err error)
}

// BookingAPI is the slice of the HTTP client the workflow needs.
type BookingAPI interface {
	CreatePaymentOrder(ctx context.Context, amountPaise int64) (*models.PaymentOrder, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*models.PaymentVerification, error)
	CreateAppointment(ctx context.Context, req client.CreateAppointmentRequest) (*models.Appointment, error)
	SavePayment(ctx context.Context, userID string, appointmentID, amountRupees int64) error
}

// Workflow runs the pay-then-book sequence for one patient session.
type Workflow struct {
	api       BookingAPI
	checkout  CheckoutProvider
	profiles  ProfileChecker
	session   *Session
	feeRupees int64
	log       *zerolog.Logger
}

// NewWorkflow wires the booking workflow. feeRupees is the flat booking fee.
func NewWorkflow(api BookingAPI, checkout CheckoutProvider, profiles ProfileChecker, session *Session, feeRupees int64, log *zerolog.Logger) *Workflow {
	return &Workflow{
		api:       api,
		checkout:  checkout,
		profiles:  profiles,
		session:   session,
		feeRupees: feeRupees,
		log:       log,
	}
}

// BookAndPay takes a picker with a selected date and slot through payment
// and appointment creation. The appointment is only created after the
// gateway signature verifies; any earlier failure leaves no appointment
// behind. On success the picker resets and the returned date (tomorrow)
// is where the dialog jumps next. If only the payment record fails to
// save, the appointment and reset date are returned together with
// ErrPaymentUnrecorded.
func (w *Workflow) BookAndPay(ctx context.Context, picker *SlotPicker) (*models.Appointment, string, error) {
	if !w.session.Valid() {
		return nil, "", ErrNoSession
	}
	if w.profiles != nil {
		complete, err := w.profiles.ProfileComplete(ctx, w.session.PatientID)
		if err != nil {
			return nil, "", err
		}
		if !complete {
			return nil, "", ErrProfileIncomplete
		}
	}

	date, slot, ok := picker.Selection()
	if !ok {
		return nil, "", ErrNothingSelected
	}

	order, err := w.api.CreatePaymentOrder(ctx, w.feeRupees*100)
	if err != nil {
		return nil, "", err
	}

	paymentID, signature, err := w.checkout.Checkout(ctx, *order)
	if err != nil {
		w.log.Info().Str("order_id", order.OrderID).Err(err).Msg("checkout did not complete")
		return nil, "", err
	}

	verdict, err := w.api.VerifyPayment(ctx, order.OrderID, paymentID, signature)
	if err != nil {
		return nil, "", err
	}
	if !verdict.Success {
		w.log.Warn().Str("order_id", order.OrderID).Str("reason", verdict.Message).Msg("payment rejected")
		return nil, "", ErrPaymentFailed
	}

	a, err := w.api.CreateAppointment(ctx, client.CreateAppointmentRequest{
		DoctorID:        picker.doctorID,
		PatientID:       w.session.PatientID,
		AppointmentDate: date,
		TimeSlot:        slot,
	})
	if err != nil {
		return nil, "", err
	}

	saveErr := w.api.SavePayment(ctx, w.session.PatientID, a.ID, w.feeRupees)
	if saveErr != nil {
		// The appointment stands; the payment record can be replayed
		// later. The caller gets the sentinel so it can warn the patient.
		w.log.Error().Err(saveErr).Int64("appointment_id", a.ID).Msg("payment record not saved")
		saveErr = ErrPaymentUnrecorded
	}

	w.log.Info().
		Int64("appointment_id", a.ID).
		Str("doctor_id", a.DoctorID).
		Str("date", a.Date).
		Str("slot", a.TimeSlot).
		Msg("appointment booked")

	tomorrow := picker.Reset()
	return a, tomorrow, saveErr
}
