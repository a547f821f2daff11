package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Setting is a stored runtime setting.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	ValueType   string `json:"value_type"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

// GetSetting retrieves a setting value from the database.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.readDB.QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// GetSettingWithDefault retrieves a setting value or returns the default if not found.
func (db *DB) GetSettingWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := db.GetSetting(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetIntSetting retrieves an integer setting value.
func (db *DB) GetIntSetting(ctx context.Context, key string, defaultValue int) int {
	value, err := db.GetSetting(ctx, key)
	if err != nil {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// GetDurationSetting retrieves a duration setting value.
func (db *DB) GetDurationSetting(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := db.GetSetting(ctx, key)
	if err != nil {
		return defaultValue
	}
	durationVal, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return durationVal
}

// ListSettings retrieves all settings ordered by key.
func (db *DB) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := db.readDB.QueryContext(ctx,
		`SELECT key, value, value_type, description, updated_at FROM system_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.ValueType, &s.Description, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

// UpsertSetting inserts or updates a setting.
func (db *DB) UpsertSetting(ctx context.Context, key, value, valueType, description string) error {
	_, err := db.writeDB.ExecContext(ctx, `
		INSERT INTO system_settings (key, value, value_type, description, updated_at)
		VALUES (?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			value_type = excluded.value_type,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		key, value, valueType, description)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting deletes a setting.
func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	res, err := db.writeDB.ExecContext(ctx, `DELETE FROM system_settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
