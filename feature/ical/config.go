package ical

import (
	"fmt"
	"time"
)

// Config holds configuration for the feed fetcher.
type Config struct {
	// TimeoutSeconds bounds a single feed download.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// UserAgent is sent with feed requests.
	UserAgent string `mapstructure:"user_agent" default:"calendar-sync"`
}

// Timeout returns the download timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Feed is an iCalendar subscription synced into a Google calendar.
type Feed struct {
	// Name is unique among configured feeds.
	Name string `mapstructure:"name" json:"name"`
	// URL is the .ics address.
	URL string `mapstructure:"url" json:"url"`
	// CalendarID is the destination Google calendar. Several feeds may share
	// one; events written before feed tagging are then left alone.
	CalendarID string `mapstructure:"calendar_id" json:"calendar_id"`
}

// Validate reports missing required fields.
func (f Feed) Validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("feed name is required")
	case f.URL == "":
		return fmt.Errorf("feed %q: url is required", f.Name)
	case f.CalendarID == "":
		return fmt.Errorf("feed %q: calendar_id is required", f.Name)
	}
	return nil
}
