package sync

import (
	"context"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/reconcile"
	"calendar-sync/feature/gcal"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/notion"
)

// RecordSource lists the source events of a database.
type RecordSource interface {
	ListRecords(ctx context.Context, db notion.Database) ([]*event.SourceEvent, error)
}

// FeedSource lists the events of a feed.
type FeedSource interface {
	ListEvents(ctx context.Context, feed ical.Feed, since time.Time) ([]*event.FeedEvent, error)
}

// RecordDestination is a destination calendar for record events.
type RecordDestination interface {
	reconcile.Destination[*event.SourceEvent]
	List(ctx context.Context, since time.Time) ([]*event.SourceEvent, error)
}

// SeriesDestination is a destination calendar for feed events.
type SeriesDestination interface {
	reconcile.SeriesDestination
	List(ctx context.Context, since time.Time) ([]*event.FeedEvent, error)
}

// Calendars resolves the destination of a target.
type Calendars interface {
	Records(db notion.Database) RecordDestination
	Series(feed ical.Feed) SeriesDestination
}

// GoogleCalendars resolves destinations in Google Calendar.
type GoogleCalendars struct {
	client *gcal.Client
	// feedsPerCalendar counts configured feeds by destination calendar.
	feedsPerCalendar map[string]int
}

// NewGoogleCalendars wraps a Google Calendar client. feeds are all configured
// feeds; calendars shared by several feeds never claim untagged events.
func NewGoogleCalendars(client *gcal.Client, feeds []ical.Feed) *GoogleCalendars {
	counts := make(map[string]int, len(feeds))
	for _, f := range feeds {
		counts[f.CalendarID]++
	}
	return &GoogleCalendars{client: client, feedsPerCalendar: counts}
}

// Records returns the database calendar. Titles are decorated with the tag icon.
func (g *GoogleCalendars) Records(db notion.Database) RecordDestination {
	return g.client.Records(gcal.RecordTarget{
		CalendarID:   db.CalendarID,
		CollectionID: db.ID,
		Summary: func(e *event.SourceEvent) string {
			return db.DisplayTitle(e.Title, e.Tag)
		},
	})
}

// Series returns the feed calendar.
func (g *GoogleCalendars) Series(feed ical.Feed) SeriesDestination {
	return g.client.Series(feed.CalendarID, feed.Name, g.feedsPerCalendar[feed.CalendarID] <= 1)
}
