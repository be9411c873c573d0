package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		FeeRupees       int64  `yaml:"fee_rupees"`
		OffDay          string `yaml:"off_day"`
		WindowDays      int    `yaml:"window_days"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"booking"`

	Razorpay struct {
		KeyID     string `yaml:"key_id"`
		KeySecret string `yaml:"key_secret"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"razorpay"`

	Email struct {
		Enabled  bool   `yaml:"enabled"`
		From     string `yaml:"from"`
		SMTP     string `yaml:"smtp"` // host:port
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		// Patient addresses, keyed by patient id. Stands in for a user
		// directory service.
		Addresses map[string]string `yaml:"addresses"`
	} `yaml:"email"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"sheets"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/ecare.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	return &cfg, nil
}

// FeeRupees is the fixed consultation fee charged at booking.
func (c *Config) FeeRupees() int64 {
	if c.Booking.FeeRupees <= 0 {
		return 200
	}
	return c.Booking.FeeRupees
}

// OffDay is the weekly day with no consultations.
func (c *Config) OffDay() time.Weekday {
	switch c.Booking.OffDay {
	case "monday":
		return time.Monday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		return time.Sunday
	}
}

// WindowDays is the size of the booking date-picker window.
func (c *Config) WindowDays() int {
	if c.Booking.WindowDays <= 0 {
		return 7
	}
	return c.Booking.WindowDays
}

// CacheTTL is how long availability responses may be served from Redis.
func (c *Config) CacheTTL() time.Duration {
	if c.Booking.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Booking.CacheTTLSeconds) * time.Second
}
