package models

import "time"

// Settings is the immutable engine configuration snapshot.
// A reload produces a new value; nothing mutates a shared instance.
type Settings struct {
	EmailAuthEnabled        bool
	PerUserEmailRestriction bool
	SubjectRestriction      bool
	EarlyStop               bool
	LookbackHours           int
	MaxMessagesToCheck      int
	ReceivedWindowMinutes   int
	ConnectionTimeout       time.Duration
}

// Setting keys as stored in the settings table.
const (
	SettingEmailAuthEnabled        = "email_auth_enabled"
	SettingPerUserEmailRestriction = "per_user_email_restriction"
	SettingSubjectRestriction      = "subject_restriction"
	SettingEarlyStop               = "early_stop"
	SettingLookbackHours           = "lookback_hours"
	SettingMaxMessagesToCheck      = "max_messages_to_check"
	SettingReceivedWindowMinutes   = "received_window_minutes"
	SettingConnectionTimeout       = "connection_timeout_seconds"
)

// DefaultSettings returns the values used for every key missing from storage.
func DefaultSettings() Settings {
	return Settings{
		EmailAuthEnabled:        false,
		PerUserEmailRestriction: false,
		SubjectRestriction:      false,
		EarlyStop:               true,
		LookbackHours:           24,
		MaxMessagesToCheck:      40,
		ReceivedWindowMinutes:   15,
		ConnectionTimeout:       10 * time.Second,
	}
}

// ReceivedWindow is the maximum age of a message that may be returned.
func (s Settings) ReceivedWindow() time.Duration {
	return time.Duration(s.ReceivedWindowMinutes) * time.Minute
}

// Lookback bounds the optimized IMAP search.
func (s Settings) Lookback() time.Duration {
	return time.Duration(s.LookbackHours) * time.Hour
}
