package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/reconcile"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Client creates calendar handles sharing one API service.
type Client struct {
	service    *gcal.Service
	maxResults int64
	logger     *zap.Logger
}

// NewClient creates a client on top of an authorized HTTP client.
func NewClient(ctx context.Context, cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	maxResults := int64(cfg.MaxResults)
	if maxResults <= 0 || maxResults > 2500 {
		maxResults = 2500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{service: service, maxResults: maxResults, logger: logger}, nil
}

// Calendar returns the summary of a calendar the credentials can access.
func (c *Client) Calendar(ctx context.Context, calendarID string) (string, error) {
	cal, err := c.service.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return "", &reconcile.CommunicationError{Op: "gcal.calendar", Err: err}
	}
	return cal.Summary, nil
}

// RecordTarget identifies the calendar a record collection is synced to.
type RecordTarget struct {
	CalendarID   string
	CollectionID string
	// Summary renders the displayed event title. Nil means the plain title.
	Summary func(e *event.SourceEvent) string
}

// Records returns the record destination for target.
func (c *Client) Records(target RecordTarget) *RecordCalendar {
	if target.Summary == nil {
		target.Summary = func(e *event.SourceEvent) string { return e.Title }
	}
	return &RecordCalendar{client: c, target: target}
}

// Series returns the feed destination writing into calendarID. Events
// without a feed name are only claimed when claimUntagged is set, which is
// safe only if feed is the sole feed writing into the calendar.
func (c *Client) Series(calendarID, feed string, claimUntagged bool) *SeriesCalendar {
	return &SeriesCalendar{client: c, calendarID: calendarID, feed: feed, claimUntagged: claimUntagged}
}

func (c *Client) insert(ctx context.Context, calendarID string, body *gcal.Event) (string, error) {
	created, err := c.service.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", &reconcile.CommunicationError{Op: "gcal.insert", Err: err}
	}
	return created.Id, nil
}

func (c *Client) update(ctx context.Context, calendarID, eventID string, body *gcal.Event) error {
	if _, err := c.service.Events.Update(calendarID, eventID, body).Context(ctx).Do(); err != nil {
		return &reconcile.CommunicationError{Op: "gcal.update", Err: err}
	}
	return nil
}

// delete treats an already removed event as deleted.
func (c *Client) delete(ctx context.Context, calendarID, eventID string) error {
	err := c.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusGone || apiErr.Code == http.StatusNotFound) {
		c.logger.Debug("Event already deleted", zap.String("event_id", eventID))
		return nil
	}
	if err != nil {
		return &reconcile.CommunicationError{Op: "gcal.delete", Err: err}
	}
	return nil
}

// RecordCalendar is the destination of one record collection.
type RecordCalendar struct {
	client *Client
	target RecordTarget
}

// List returns the collection's events starting after since, one per
// occurrence. Events not written by this service are ignored.
func (r *RecordCalendar) List(ctx context.Context, since time.Time) ([]*event.SourceEvent, error) {
	call := r.client.service.Events.List(r.target.CalendarID).
		SharedExtendedProperty(PropNotionDatabaseID + "=" + r.target.CollectionID).
		TimeMin(since.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(r.client.maxResults)

	var out []*event.SourceEvent
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			e, err := recordFromGoogle(item)
			if err != nil {
				r.client.logger.Warn("Ignoring calendar event", zap.String("event_id", item.Id), zap.Error(err))
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, &reconcile.CommunicationError{Op: "gcal.list", Err: err}
	}
	return out, nil
}

// Create implements reconcile.Destination.
func (r *RecordCalendar) Create(ctx context.Context, e *event.SourceEvent) (string, error) {
	return r.client.insert(ctx, r.target.CalendarID, recordBody(e, r.target.Summary(e)))
}

// Update implements reconcile.Destination.
func (r *RecordCalendar) Update(ctx context.Context, e *event.SourceEvent) error {
	return r.client.update(ctx, r.target.CalendarID, e.DestinationID, recordBody(e, r.target.Summary(e)))
}

// Delete implements reconcile.Destination.
func (r *RecordCalendar) Delete(ctx context.Context, e *event.SourceEvent) error {
	return r.client.delete(ctx, r.target.CalendarID, e.DestinationID)
}

// SeriesCalendar is the destination of one feed.
type SeriesCalendar struct {
	client        *Client
	calendarID    string
	feed          string
	claimUntagged bool
}

// List returns roots, single events and overridden instances of the feed.
// Recurring roots are returned even when they started before since.
func (s *SeriesCalendar) List(ctx context.Context, since time.Time) ([]*event.FeedEvent, error) {
	call := s.client.service.Events.List(s.calendarID).
		TimeMin(since.UTC().Format(time.RFC3339)).
		SingleEvents(false).
		MaxResults(s.client.maxResults)

	var out []*event.FeedEvent
	err := call.Pages(ctx, func(page *gcal.Events) error {
		out = append(out, s.convert(page.Items)...)
		return nil
	})
	if err != nil {
		return nil, &reconcile.CommunicationError{Op: "gcal.list", Err: err}
	}
	return out, nil
}

// ListInstances implements reconcile.SeriesDestination.
func (s *SeriesCalendar) ListInstances(ctx context.Context, root *event.FeedEvent) ([]*event.FeedEvent, error) {
	call := s.client.service.Events.Instances(s.calendarID, root.DestinationID).
		ShowDeleted(true).
		MaxResults(s.client.maxResults)

	var out []*event.FeedEvent
	err := call.Pages(ctx, func(page *gcal.Events) error {
		out = append(out, s.convert(page.Items)...)
		return nil
	})
	if err != nil {
		return nil, &reconcile.CommunicationError{Op: "gcal.instances", Err: err}
	}
	return out, nil
}

// Create implements reconcile.Destination.
func (s *SeriesCalendar) Create(ctx context.Context, e *event.FeedEvent) (string, error) {
	return s.client.insert(ctx, s.calendarID, s.body(e))
}

// Update implements reconcile.Destination.
func (s *SeriesCalendar) Update(ctx context.Context, e *event.FeedEvent) error {
	return s.client.update(ctx, s.calendarID, e.DestinationID, s.body(e))
}

// Delete implements reconcile.Destination. Deleting a root removes its instances.
func (s *SeriesCalendar) Delete(ctx context.Context, e *event.FeedEvent) error {
	return s.client.delete(ctx, s.calendarID, e.DestinationID)
}

func (s *SeriesCalendar) body(e *event.FeedEvent) *gcal.Event {
	if e.FeedID == "" {
		e = e.Clone()
		e.FeedID = s.feed
	}
	return feedBody(e)
}

// convert keeps the items written for this feed. Items without a feed name
// predate feed tagging and are kept when the calendar has no other feed.
func (s *SeriesCalendar) convert(items []*gcal.Event) []*event.FeedEvent {
	out := make([]*event.FeedEvent, 0, len(items))
	for _, item := range items {
		e, err := feedFromGoogle(item)
		if err != nil {
			s.client.logger.Debug("Ignoring calendar event", zap.String("event_id", item.Id), zap.Error(err))
			continue
		}
		if e.FeedID != s.feed && (e.FeedID != "" || !s.claimUntagged) {
			continue
		}
		out = append(out, e)
	}
	return out
}
