package config

import (
	"context"
	"strconv"
	"time"
)

// SettingsStore reads runtime settings persisted next to the sync journal.
type SettingsStore interface {
	GetSettingWithDefault(ctx context.Context, key, defaultValue string) string
	GetIntSetting(ctx context.Context, key string, defaultValue int) int
	GetDurationSetting(ctx context.Context, key string, defaultValue time.Duration) time.Duration
}

// RuntimeSetting describes a key that may be changed at runtime without editing config.toml.
type RuntimeSetting struct {
	Key         string
	ValueType   string
	Description string
}

// RuntimeSettings lists every key LoadRuntimeConfig honours.
var RuntimeSettings = []RuntimeSetting{
	{Key: "hawkular.timeout", ValueType: "duration", Description: "Timeout for a single Hawkular Alerts request"},
	{Key: "hawkular.max_retries", ValueType: "number", Description: "Retries for Hawkular requests failing with 5xx or network errors"},
	{Key: "hawkular.retry_delay", ValueType: "duration", Description: "Initial backoff between Hawkular retries"},
	{Key: "sqlite.journal_limit", ValueType: "number", Description: "Sync journal rows kept per alert"},
	{Key: "notify.on_success", ValueType: "boolean", Description: "Also notify webhooks about successful syncs"},
	{Key: "logging.level", ValueType: "string", Description: "Log level (debug, info, warn, error)"},
}

// RuntimeValue returns the current value of a runtime setting key as stored text.
func (c *Config) RuntimeValue(key string) (string, bool) {
	switch key {
	case "hawkular.timeout":
		return c.Hawkular.Timeout.String(), true
	case "hawkular.max_retries":
		return strconv.Itoa(c.Hawkular.MaxRetries), true
	case "hawkular.retry_delay":
		return c.Hawkular.RetryDelay.String(), true
	case "sqlite.journal_limit":
		return strconv.Itoa(c.SQLite.JournalLimit), true
	case "notify.on_success":
		return strconv.FormatBool(c.Notify.OnSuccess), true
	case "logging.level":
		return c.Logging.Level, true
	}
	return "", false
}

// LoadRuntimeConfig overlays stored settings on top of the static configuration.
// A nil store returns a copy of the static configuration.
func LoadRuntimeConfig(ctx context.Context, static *Config, store SettingsStore) *Config {
	cfg := *static
	if store == nil {
		return &cfg
	}

	cfg.Hawkular.Timeout = store.GetDurationSetting(ctx, "hawkular.timeout", cfg.Hawkular.Timeout)
	cfg.Hawkular.MaxRetries = store.GetIntSetting(ctx, "hawkular.max_retries", cfg.Hawkular.MaxRetries)
	cfg.Hawkular.RetryDelay = store.GetDurationSetting(ctx, "hawkular.retry_delay", cfg.Hawkular.RetryDelay)
	cfg.SQLite.JournalLimit = store.GetIntSetting(ctx, "sqlite.journal_limit", cfg.SQLite.JournalLimit)
	if v, err := strconv.ParseBool(store.GetSettingWithDefault(ctx, "notify.on_success", "")); err == nil {
		cfg.Notify.OnSuccess = v
	}

	switch level := store.GetSettingWithDefault(ctx, "logging.level", cfg.Logging.Level); level {
	case "debug", "info", "warn", "error":
		cfg.Logging.Level = level
	}
	return &cfg
}
