// Package api exposes the booking service over REST.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"ecare/internal/audit"
	"ecare/internal/payment"
	"ecare/internal/service"
)

// HTTPServer serves the booking API.
type HTTPServer struct {
	svc      *service.AppointmentService
	gateway  *payment.Gateway
	exporter *audit.Exporter
	server   *http.Server
	log      *zerolog.Logger
	apiKey   string
	feePaise int64
}

// NewHTTPServer wires routes for the appointment, leave, payment and
// report endpoints. feeRupees is the flat booking fee orders must match.
func NewHTTPServer(port int, svc *service.AppointmentService, gateway *payment.Gateway, exporter *audit.Exporter, apiKey string, feeRupees int64, log *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:      svc,
		gateway:  gateway,
		exporter: exporter,
		log:      log,
		apiKey:   apiKey,
		feePaise: feeRupees * 100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability", s.auth(s.handleAvailability))
	mux.HandleFunc("/api/appointments", s.auth(s.handleAppointments))
	mux.HandleFunc("/api/appointments/", s.auth(s.handleAppointmentAction))
	mux.HandleFunc("/api/doctor/appointments", s.auth(s.handleDoctorAppointments))
	mux.HandleFunc("/api/leaves", s.auth(s.handleLeaves))
	mux.HandleFunc("/api/leaves/", s.auth(s.handleLeaveDecision))
	mux.HandleFunc("/api/payment/order", s.auth(s.handlePaymentOrder))
	mux.HandleFunc("/api/payment/verify", s.auth(s.handlePaymentVerify))
	mux.HandleFunc("/api/payment/save", s.auth(s.handlePaymentSave))
	mux.HandleFunc("/api/payments", s.auth(s.handlePayments))
	mux.HandleFunc("/api/reports", s.auth(s.handleReports))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Start serves until the context is canceled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("booking API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// auth enforces the x-api-key header when a key is configured.
func (s *HTTPServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
