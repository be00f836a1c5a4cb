package models

import (
	"fmt"
	"time"
)

// SettingsID is the id of the singleton sync settings row.
const SettingsID = "default"

// SyncSettings is the single global sync configuration row.
type SyncSettings struct {
	ID              string    `db:"id" json:"id"`
	AutoSyncEnabled bool      `db:"auto_sync_enabled" json:"auto_sync_enabled"`
	MorningSyncTime string    `db:"morning_sync_time" json:"morning_sync_time" validate:"required"`
	EveningSyncTime string    `db:"evening_sync_time" json:"evening_sync_time" validate:"required"`
	Timezone        string    `db:"timezone" json:"timezone" validate:"required"`
	RetentionDays   int       `db:"retention_days" json:"retention_days" validate:"gte=1"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSyncSettings returns the settings used until the user saves their own.
func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		ID:              SettingsID,
		AutoSyncEnabled: false,
		MorningSyncTime: "07:00",
		EveningSyncTime: "19:00",
		Timezone:        "UTC",
		RetentionDays:   90,
		UpdatedAt:       time.Now().UTC(),
	}
}

// Retention returns the archive retention window as a duration.
func (s *SyncSettings) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// Validate checks the trigger times and timezone are parseable.
func (s *SyncSettings) Validate() error {
	for _, t := range []string{s.MorningSyncTime, s.EveningSyncTime} {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("invalid trigger time %q: expected HH:MM", t)
		}
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q", s.Timezone)
	}
	if s.RetentionDays < 1 {
		return fmt.Errorf("retention_days must be at least 1")
	}
	return nil
}
