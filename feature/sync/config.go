package sync

import "time"

// Config holds configuration for the sync jobs.
type Config struct {
	// MaxCreateAgeDays suppresses creation of events that started longer ago.
	MaxCreateAgeDays int `mapstructure:"max_create_age_days" default:"5"`
	// CutoffDays is how far back source and destination events are read.
	CutoffDays int `mapstructure:"cutoff_days" default:"30"`
	// Schedule is a cron expression for the server scheduler. Empty disables it.
	Schedule string `mapstructure:"schedule" default:""`
	// PushURL is pinged after every successful full run.
	PushURL string `mapstructure:"push_url" default:""`
	// DryRun records decisions without touching the calendars.
	DryRun bool `mapstructure:"dry_run" default:"false"`
}

// MaxCreateAge returns the creation age limit.
func (c Config) MaxCreateAge() time.Duration {
	if c.MaxCreateAgeDays <= 0 {
		return 5 * 24 * time.Hour
	}
	return time.Duration(c.MaxCreateAgeDays) * 24 * time.Hour
}

// Cutoff returns the listing window.
func (c Config) Cutoff() time.Duration {
	if c.CutoffDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.CutoffDays) * 24 * time.Hour
}
