package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/history"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/notion"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type stubRecords struct {
	events map[string][]*event.SourceEvent
	err    error
}

func (s *stubRecords) ListRecords(_ context.Context, db notion.Database) ([]*event.SourceEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*event.SourceEvent
	for _, e := range s.events[db.Name] {
		out = append(out, e.Clone())
	}
	return out, nil
}

type stubFeeds struct {
	events map[string][]*event.FeedEvent
	err    error
}

func (s *stubFeeds) ListEvents(_ context.Context, feed ical.Feed, _ time.Time) ([]*event.FeedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*event.FeedEvent
	for _, e := range s.events[feed.Name] {
		out = append(out, e.Clone())
	}
	return out, nil
}

// memCalendar stores events of either kind by destination id.
type memCalendar[T event.Reconcilable] struct {
	mu     gosync.Mutex
	events map[string]T
	clone  func(T) T
	next   int
	writes int
}

func newMemCalendar[T event.Reconcilable](clone func(T) T) *memCalendar[T] {
	return &memCalendar[T]{events: map[string]T{}, clone: clone}
}

func (c *memCalendar[T]) Create(_ context.Context, e T) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.writes++
	id := fmt.Sprintf("evt-%d", c.next)
	stored := c.clone(e)
	stored.Base().DestinationID = id
	c.events[id] = stored
	return id, nil
}

func (c *memCalendar[T]) Update(_ context.Context, e T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	c.events[e.Base().DestinationID] = c.clone(e)
	return nil
}

func (c *memCalendar[T]) Delete(_ context.Context, e T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	delete(c.events, e.Base().DestinationID)
	return nil
}

func (c *memCalendar[T]) List(context.Context, time.Time) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, c.clone(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base().DestinationID < out[j].Base().DestinationID })
	return out, nil
}

func (c *memCalendar[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *memCalendar[T]) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type memSeries struct {
	*memCalendar[*event.FeedEvent]
}

func (memSeries) ListInstances(context.Context, *event.FeedEvent) ([]*event.FeedEvent, error) {
	return nil, errors.New("instances not supported")
}

type stubCalendars struct {
	records map[string]*memCalendar[*event.SourceEvent]
	series  map[string]memSeries
}

func newStubCalendars() *stubCalendars {
	return &stubCalendars{
		records: map[string]*memCalendar[*event.SourceEvent]{},
		series:  map[string]memSeries{},
	}
}

func (s *stubCalendars) Records(db notion.Database) RecordDestination {
	c, ok := s.records[db.Name]
	if !ok {
		c = newMemCalendar((*event.SourceEvent).Clone)
		s.records[db.Name] = c
	}
	return c
}

func (s *stubCalendars) Series(feed ical.Feed) SeriesDestination {
	c, ok := s.series[feed.Name]
	if !ok {
		c = memSeries{newMemCalendar((*event.FeedEvent).Clone)}
		s.series[feed.Name] = c
	}
	return c
}

type memHistory struct {
	mu   gosync.Mutex
	runs []*history.Run
	err  error
}

func (m *memHistory) Save(_ context.Context, run *history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := *run
	m.runs = append(m.runs, &copied)
	return nil
}

func (m *memHistory) Get(_ context.Context, id string) (*history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, history.ErrNotFound
}

func (m *memHistory) List(_ context.Context, filter history.Filter) ([]history.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []history.Run{}
	for i := len(m.runs) - 1; i >= 0; i-- {
		r := m.runs[i]
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.Target != "" && r.Target != filter.Target {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func testDatabase(name string) notion.Database {
	return notion.Database{
		Workspace:     "ws",
		Name:          name,
		ID:            "db-" + name,
		CalendarID:    "cal-" + name,
		TitleProperty: "Name",
		DateProperty:  "Date",
	}
}

func testFeed(name string) ical.Feed {
	return ical.Feed{Name: name, URL: "https://example.com/" + name + ".ics", CalendarID: "cal-" + name}
}

func testRecord(id, title string, start time.Time) *event.SourceEvent {
	d, err := event.NewDate(start, start.Add(time.Hour), false)
	if err != nil {
		panic(err)
	}
	return &event.SourceEvent{Event: event.Event{Title: title, Date: d}, RecordID: id}
}

func testFeedEvent(uid, title string, start time.Time) *event.FeedEvent {
	d, err := event.NewDate(start, start.Add(time.Hour), false)
	if err != nil {
		panic(err)
	}
	return &event.FeedEvent{Event: event.Event{Title: title, Date: d}, SeriesUID: uid, Status: event.StatusConfirmed}
}
