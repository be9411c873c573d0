package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ecare/internal/api"
	"ecare/internal/audit"
	"ecare/internal/config"
	"ecare/internal/database"
	"ecare/internal/events"
	"ecare/internal/metrics"
	"ecare/internal/notify"
	"ecare/internal/payment"
	"ecare/internal/service"
	"ecare/internal/sheets"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("ECARE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		logger.Fatal().Msg("set razorpay.key_id and razorpay.key_secret in config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	bus := events.NewEventBus()
	svc := service.NewAppointmentService(db, bus, &logger)
	gateway := payment.NewGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)

	var sender notify.Sender
	if cfg.Email.Enabled && cfg.Email.SMTP != "" {
		sender = notify.NewSMTPSender(cfg.Email.SMTP, cfg.Email.From, cfg.Email.Username, cfg.Email.Password)
	} else {
		sender = &notify.LogSender{Log: &logger}
	}
	notifier := notify.NewNotifier(sender, addressBook(cfg.Email.Addresses), 1, 5, &logger)
	notifier.SubscribeTo(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Sheets.Enabled {
		sheetSvc, err := sheets.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("sheets service error")
		}
		go syncSheets(ctx, sheetSvc, db, cfg.WindowDays(), &logger)
	}

	srv := api.NewHTTPServer(cfg.Server.Port, svc, gateway, audit.NewExporter(db), cfg.Server.APIKey, cfg.FeeRupees(), &logger)
	logger.Info().Msg("ecare booking service started")
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// addressBook adapts the configured address map to the notifier.
type addressBook map[string]string

func (b addressBook) Email(_ context.Context, patientID string) (string, error) {
	email, ok := b[patientID]
	if !ok {
		return "", errors.New("no address configured")
	}
	return email, nil
}

// syncSheets pushes the upcoming schedule to the spreadsheet every few
// minutes.
func syncSheets(ctx context.Context, sheetSvc *sheets.SheetsService, db *database.DB, windowDays int, logger *zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	sync := func() {
		from := time.Now().Format("2006-01-02")
		to := time.Now().AddDate(0, 0, windowDays).Format("2006-01-02")
		appointments, err := db.GetAppointmentsByDateRange(ctx, from, to)
		if err != nil {
			logger.Error().Err(err).Msg("load appointments for sheet sync")
			return
		}
		if err := sheetSvc.SyncAppointments(ctx, appointments); err != nil {
			logger.Error().Err(err).Msg("sheet sync failed")
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
