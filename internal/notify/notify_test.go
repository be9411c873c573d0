package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecare/internal/events"
	"ecare/internal/models"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type staticBook map[string]string

func (b staticBook) Email(_ context.Context, patientID string) (string, error) {
	email, ok := b[patientID]
	if !ok {
		return "", errors.New("unknown patient")
	}
	return email, nil
}

func newTestNotifier(sender Sender) *Notifier {
	logger := zerolog.New(io.Discard)
	book := staticBook{"pat-1": "asha@example.com"}
	return NewNotifier(sender, book, 100, 10, &logger)
}

func TestNotifierOnCancelEvent(t *testing.T) {
	sender := &captureSender{}
	n := newTestNotifier(sender)

	bus := events.NewEventBus()
	n.SubscribeTo(bus)

	a := &models.Appointment{ID: 1, PatientID: "pat-1", Date: "2025-06-03", TimeSlot: "9:30 AM"}
	require.NoError(t, bus.PublishJSON(events.TypeAppointmentCanceled, a))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "asha@example.com", sender.sent[0].To)
	assert.Equal(t, "Appointment canceled", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "2025-06-03")
	assert.Contains(t, sender.sent[0].Body, "9:30 AM")
}

func TestNotifierOnRescheduleEvent(t *testing.T) {
	sender := &captureSender{}
	n := newTestNotifier(sender)

	bus := events.NewEventBus()
	n.SubscribeTo(bus)

	a := &models.Appointment{ID: 1, PatientID: "pat-1", Date: "2025-06-04", TimeSlot: "11:00 AM"}
	require.NoError(t, bus.PublishJSON(events.TypeAppointmentRescheduled, a))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Appointment rescheduled", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "11:00 AM")
}

func TestNotifierUnknownPatient(t *testing.T) {
	sender := &captureSender{}
	n := newTestNotifier(sender)

	a := &models.Appointment{ID: 1, PatientID: "pat-9"}
	err := n.Notify(context.Background(), a, "s", "b")
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestNotifierCreatedEventIgnored(t *testing.T) {
	sender := &captureSender{}
	n := newTestNotifier(sender)

	bus := events.NewEventBus()
	n.SubscribeTo(bus)

	a := &models.Appointment{ID: 1, PatientID: "pat-1"}
	require.NoError(t, bus.PublishJSON(events.TypeAppointmentCreated, a))
	assert.Empty(t, sender.sent, "creation is confirmed in the UI, not by email")
}
