// Package config loads hawkalert configuration from TOML and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Nesting uses a double
// underscore: HAWKALERT_HAWKULAR__BASE_URL sets hawkular.base_url.
const EnvPrefix = "HAWKALERT_"

// Config is the complete hawkalert configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Hawkular HawkularConfig `koanf:"hawkular"`
	EMS      EMSConfig      `koanf:"ems"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Notify   NotifyConfig   `koanf:"notify"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	HTTPServerTimeout time.Duration `koanf:"http_server_timeout"`
}

// HawkularConfig holds the Hawkular Alerts connection.
type HawkularConfig struct {
	BaseURL       string        `koanf:"base_url"`
	Tenant        string        `koanf:"tenant"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	Token         string        `koanf:"token"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	RateLimit     float64       `koanf:"rate_limit"`
	RateBurst     int           `koanf:"rate_burst"`
	SkipTLSVerify bool          `koanf:"skip_tls_verify"`
}

// EMSConfig identifies the middleware provider whose triggers are managed.
type EMSConfig struct {
	RegionGUID string `koanf:"region_guid"`
	GUID       string `koanf:"guid"`
}

// MetricsConfig controls the live metrics registry and the /metrics endpoint.
type MetricsConfig struct {
	// LiveMetricsFile replaces the embedded live metrics definitions when set.
	LiveMetricsFile string            `koanf:"live_metrics_file"`
	Overrides       map[string]string `koanf:"overrides"`
	Enabled         bool              `koanf:"enabled"`
	ProcessMetrics  bool              `koanf:"process_metrics"`
}

// SQLiteConfig holds the sync journal database settings.
type SQLiteConfig struct {
	Path         string `koanf:"path"`
	JournalLimit int    `koanf:"journal_limit"`
}

// NotifyConfig controls delivery of sync outcomes. Failures are always
// delivered; successes only when OnSuccess is set.
type NotifyConfig struct {
	WebhookURLs   []string      `koanf:"webhook_urls"`
	Timeout       time.Duration `koanf:"timeout"`
	SkipTLSVerify bool          `koanf:"skip_tls_verify"`
	OnSuccess     bool          `koanf:"on_success"`
	Log           bool          `koanf:"log"`
}

// Enabled reports whether any notification sink is configured.
func (n NotifyConfig) Enabled() bool {
	return n.Log || len(n.WebhookURLs) > 0
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8125,
			HTTPServerTimeout: 30 * time.Second,
		},
		Hawkular: HawkularConfig{
			BaseURL:    "http://localhost:8080",
			Tenant:     "hawkular",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			RetryDelay: 500 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		SQLite: SQLiteConfig{
			Path:         "hawkalert.db",
			JournalLimit: 1000,
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (when it exists) and HAWKALERT_ environment overrides on top of Default.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envToKey maps HAWKALERT_HAWKULAR__BASE_URL to hawkular.base_url.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Hawkular.BaseURL) == "" {
		errs = append(errs, errors.New("hawkular.base_url is required"))
	} else if u, err := url.Parse(c.Hawkular.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("hawkular.base_url %q is not an absolute URL", c.Hawkular.BaseURL))
	}
	if c.Hawkular.Token != "" && c.Hawkular.Username != "" {
		errs = append(errs, errors.New("hawkular.token and hawkular.username are mutually exclusive"))
	}
	if c.Hawkular.RateLimit < 0 || c.Hawkular.RateBurst < 0 {
		errs = append(errs, errors.New("hawkular.rate_limit and hawkular.rate_burst must not be negative"))
	}
	if c.Hawkular.MaxRetries < 0 {
		errs = append(errs, errors.New("hawkular.max_retries must not be negative"))
	}
	if c.EMS.RegionGUID == "" {
		errs = append(errs, errors.New("ems.region_guid is required"))
	}
	if c.EMS.GUID == "" {
		errs = append(errs, errors.New("ems.guid is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	for _, raw := range c.Notify.WebhookURLs {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("notify.webhook_urls entry %q is not an http(s) URL", raw))
		}
	}
	if c.SQLite.JournalLimit < 0 {
		errs = append(errs, errors.New("sqlite.journal_limit must not be negative"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Address returns the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
