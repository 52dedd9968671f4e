package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/vcode/internal/models"
)

// ErrSettingNotFound is returned when a settings key has no row.
var ErrSettingNotFound = errors.New("setting not found")

// GetSetting returns the raw value of one key.
func GetSetting(ctx context.Context, pool *pgxpool.Pool, key string) (string, error) {
	var value string
	err := pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts one key.
func SetSetting(ctx context.Context, pool *pgxpool.Pool, key, value string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// LoadSettings reads the settings table into a typed snapshot.
// Missing keys and values that do not parse keep their defaults; the names of
// rejected keys are returned alongside so the caller can log them.
func LoadSettings(ctx context.Context, pool *pgxpool.Pool) (models.Settings, []string, error) {
	settings := models.DefaultSettings()

	rows, err := pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return settings, nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	raw := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		raw[key] = value
	}
	if err := rows.Err(); err != nil {
		return settings, nil, fmt.Errorf("error iterating settings: %w", err)
	}

	settings, rejected := ApplySettings(settings, raw)
	return settings, rejected, nil
}

// ApplySettings overlays raw key/value pairs onto base.
func ApplySettings(base models.Settings, raw map[string]string) (models.Settings, []string) {
	var rejected []string

	setBool := func(key string, dst *bool) {
		v, ok := raw[key]
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			rejected = append(rejected, key)
			return
		}
		*dst = b
	}
	setPositive := func(key string, dst *int) {
		v, ok := raw[key]
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			rejected = append(rejected, key)
			return
		}
		*dst = n
	}

	setBool(models.SettingEmailAuthEnabled, &base.EmailAuthEnabled)
	setBool(models.SettingPerUserEmailRestriction, &base.PerUserEmailRestriction)
	setBool(models.SettingSubjectRestriction, &base.SubjectRestriction)
	setBool(models.SettingEarlyStop, &base.EarlyStop)
	setPositive(models.SettingLookbackHours, &base.LookbackHours)
	setPositive(models.SettingMaxMessagesToCheck, &base.MaxMessagesToCheck)
	setPositive(models.SettingReceivedWindowMinutes, &base.ReceivedWindowMinutes)

	timeoutSeconds := int(base.ConnectionTimeout / time.Second)
	setPositive(models.SettingConnectionTimeout, &timeoutSeconds)
	base.ConnectionTimeout = time.Duration(timeoutSeconds) * time.Second

	return base, rejected
}
