// Package notify sends appointment emails off the event bus.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"ecare/internal/events"
	"ecare/internal/models"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// AddressBook resolves a patient id to an email address.
type AddressBook interface {
	Email(ctx context.Context, patientID string) (string, error)
}

// SMTPSender sends mail over a plain SMTP endpoint.
type SMTPSender struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

// NewSMTPSender builds a sender. username may be empty for open relays.
func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{addr: addr, from: from, auth: auth}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, msg.To, msg.Subject, msg.Body)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, []byte(body))
}

// LogSender writes messages to the log instead of delivering them. Used
// when email is disabled and in tests.
type LogSender struct {
	Log *zerolog.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email suppressed")
	return nil
}

// Notifier listens for appointment changes and emails the patient.
// Deliveries go through a token-bucket limiter so a burst of schedule
// changes cannot flood the relay.
type Notifier struct {
	sender  Sender
	book    AddressBook
	limiter *rate.Limiter
	log     *zerolog.Logger
}

// NewNotifier builds a notifier sending at most perSecond messages with
// the given burst.
func NewNotifier(sender Sender, book AddressBook, perSecond float64, burst int, log *zerolog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		book:    book,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		log:     log,
	}
}

// SubscribeTo registers the notifier on the bus for cancel and
// reschedule events.
func (n *Notifier) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.TypeAppointmentCanceled, n.handleEvent(
		"Appointment canceled",
		"Your appointment on %s at %s has been canceled.",
	))
	bus.Subscribe(events.TypeAppointmentRescheduled, n.handleEvent(
		"Appointment rescheduled",
		"Your appointment has been moved to %s at %s.",
	))
}

func (n *Notifier) handleEvent(subject, bodyFormat string) events.EventHandler {
	return func(event events.Event) error {
		var a models.Appointment
		if err := json.Unmarshal(event.Payload, &a); err != nil {
			n.log.Error().Err(err).Str("type", event.Type).Msg("bad event payload")
			return err
		}
		return n.Notify(context.Background(), &a, subject, fmt.Sprintf(bodyFormat, a.Date, a.TimeSlot))
	}
}

// Notify resolves the patient address and sends one message.
func (n *Notifier) Notify(ctx context.Context, a *models.Appointment, subject, body string) error {
	email, err := n.book.Email(ctx, a.PatientID)
	if err != nil {
		n.log.Warn().Err(err).Str("patient_id", a.PatientID).Msg("no email address")
		return err
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := n.sender.Send(ctx, Message{To: email, Subject: subject, Body: body}); err != nil {
		n.log.Error().Err(err).Str("to", email).Msg("send failed")
		return err
	}
	n.log.Info().Str("to", email).Str("subject", subject).Msg("notification sent")
	return nil
}
