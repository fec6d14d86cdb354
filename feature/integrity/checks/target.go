package checks

import (
	"context"
	"fmt"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/notion"
)

// Status values of a check.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// TargetReport is the outcome of the checks of one target.
type TargetReport struct {
	Status string `json:"status"`
	// Calendar is the summary of the destination calendar.
	Calendar string `json:"calendar,omitempty"`
	// Missing lists configured properties absent from the database schema.
	Missing []string `json:"missing,omitempty"`
	// Events is the number of usable events in a feed.
	Events int    `json:"events,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r *TargetReport) fail(err error) {
	r.Status = StatusError
	if r.Error == "" {
		r.Error = err.Error()
	} else {
		r.Error += "; " + err.Error()
	}
}

// SchemaFetcher reads a database schema bypassing any cache.
type SchemaFetcher interface {
	Refresh(ctx context.Context, db notion.Database) (*notion.DatabaseObject, error)
}

// FeedLister lists the usable events of a feed.
type FeedLister interface {
	ListEvents(ctx context.Context, feed ical.Feed, since time.Time) ([]*event.FeedEvent, error)
}

// CalendarProber reads the summary of a destination calendar.
type CalendarProber interface {
	Calendar(ctx context.Context, calendarID string) (string, error)
}

// CheckDatabase verifies the schema and the destination calendar of db.
func CheckDatabase(ctx context.Context, schema SchemaFetcher, calendars CalendarProber, db notion.Database) TargetReport {
	report := TargetReport{Status: StatusOK}

	obj, err := schema.Refresh(ctx, db)
	if err != nil {
		report.fail(fmt.Errorf("schema: %w", err))
	} else {
		for _, name := range []string{db.TitleProperty, db.DateProperty, db.TagProperty()} {
			if name == "" {
				continue
			}
			if _, ok := obj.Properties[name]; !ok {
				report.Missing = append(report.Missing, name)
			}
		}
		if len(report.Missing) > 0 {
			report.fail(fmt.Errorf("%d configured properties not found", len(report.Missing)))
		}
	}

	checkCalendar(ctx, calendars, db.CalendarID, &report)
	return report
}

// CheckFeed verifies that the feed parses and its destination calendar is accessible.
func CheckFeed(ctx context.Context, feeds FeedLister, calendars CalendarProber, feed ical.Feed, since time.Time) TargetReport {
	report := TargetReport{Status: StatusOK}

	events, err := feeds.ListEvents(ctx, feed, since)
	if err != nil {
		report.fail(fmt.Errorf("feed: %w", err))
	}
	report.Events = len(events)

	checkCalendar(ctx, calendars, feed.CalendarID, &report)
	return report
}

func checkCalendar(ctx context.Context, calendars CalendarProber, id string, report *TargetReport) {
	summary, err := calendars.Calendar(ctx, id)
	if err != nil {
		report.fail(fmt.Errorf("calendar: %w", err))
		return
	}
	report.Calendar = summary
}
