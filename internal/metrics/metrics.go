package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecare",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)

	appointmentCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ecare",
			Name:      "appointment_created_total",
			Help:      "Count of appointments created.",
		},
	)

	appointmentStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecare",
			Name:      "appointment_status_total",
			Help:      "Count of appointment status transitions.",
		},
		[]string{"status"},
	)

	paymentVerification = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecare",
			Name:      "payment_verification_total",
			Help:      "Count of payment verification outcomes.",
		},
		[]string{"outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, appointmentCreated, appointmentStatus, paymentVerification)
	})
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncAppointmentCreated() {
	appointmentCreated.Inc()
}

func IncAppointmentStatus(status string) {
	appointmentStatus.WithLabelValues(status).Inc()
}

func IncPaymentVerification(outcome string) {
	paymentVerification.WithLabelValues(outcome).Inc()
}
