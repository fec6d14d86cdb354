package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"calendar-sync/core/event"

	"github.com/teambition/rrule-go"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// recordCalendar is an in-memory record destination.
type recordCalendar struct {
	events map[string]*event.SourceEvent
	nextID int
	calls  []string
	fail   map[string]error
}

func newRecordCalendar(existing ...*event.SourceEvent) *recordCalendar {
	c := &recordCalendar{events: map[string]*event.SourceEvent{}, fail: map[string]error{}}
	for _, e := range existing {
		c.nextID++
		stored := e.Clone()
		if stored.DestinationID == "" {
			stored.DestinationID = fmt.Sprintf("rec-%d", c.nextID)
		}
		c.events[stored.DestinationID] = stored
	}
	return c
}

func (c *recordCalendar) Create(_ context.Context, e *event.SourceEvent) (string, error) {
	c.calls = append(c.calls, "create:"+e.RecordID)
	if err := c.fail["create:"+e.RecordID]; err != nil {
		return "", err
	}
	c.nextID++
	id := fmt.Sprintf("rec-%d", c.nextID)
	stored := e.Clone()
	stored.DestinationID = id
	c.events[id] = stored
	return id, nil
}

func (c *recordCalendar) Update(_ context.Context, e *event.SourceEvent) error {
	c.calls = append(c.calls, "update:"+e.RecordID)
	if err := c.fail["update:"+e.RecordID]; err != nil {
		return err
	}
	c.events[e.DestinationID] = e.Clone()
	return nil
}

func (c *recordCalendar) Delete(_ context.Context, e *event.SourceEvent) error {
	c.calls = append(c.calls, "delete:"+e.RecordID)
	delete(c.events, e.DestinationID)
	return nil
}

func (c *recordCalendar) list() []*event.SourceEvent {
	out := make([]*event.SourceEvent, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
	return out
}

// seriesCalendar is an in-memory series destination. Instances of a root are
// expanded from its recurrence rule; overridden instances are stored under
// their instance id.
type seriesCalendar struct {
	events map[string]*event.FeedEvent
	nextID int
	calls  []string
	fail   map[string]error
}

func newSeriesCalendar() *seriesCalendar {
	return &seriesCalendar{events: map[string]*event.FeedEvent{}, fail: map[string]error{}}
}

// seed stores a root and returns its destination copy.
func (c *seriesCalendar) seed(e *event.FeedEvent) *event.FeedEvent {
	c.nextID++
	stored := e.Clone()
	stored.DestinationID = fmt.Sprintf("ser-%d", c.nextID)
	c.events[stored.DestinationID] = stored
	return stored.Clone()
}

// seedOverride stores an overridden instance of root.
func (c *seriesCalendar) seedOverride(root *event.FeedEvent, e *event.FeedEvent) *event.FeedEvent {
	stored := e.Clone()
	stored.DestinationID = instanceID(root.DestinationID, *e.RecurrenceStart)
	stored.DestinationSeriesID = root.DestinationID
	c.events[stored.DestinationID] = stored
	return stored.Clone()
}

func (c *seriesCalendar) Create(_ context.Context, e *event.FeedEvent) (string, error) {
	c.calls = append(c.calls, "create:"+e.SeriesUID)
	if err := c.fail["create:"+e.SeriesUID]; err != nil {
		return "", err
	}
	c.nextID++
	id := fmt.Sprintf("ser-%d", c.nextID)
	stored := e.Clone()
	stored.DestinationID = id
	c.events[id] = stored
	return id, nil
}

func (c *seriesCalendar) Update(_ context.Context, e *event.FeedEvent) error {
	c.calls = append(c.calls, "update:"+e.DestinationID)
	if err := c.fail["update:"+e.SeriesUID]; err != nil {
		return err
	}
	c.events[e.DestinationID] = e.Clone()
	return nil
}

func (c *seriesCalendar) Delete(_ context.Context, e *event.FeedEvent) error {
	c.calls = append(c.calls, "delete:"+e.DestinationID)
	for id, stored := range c.events {
		if id == e.DestinationID || stored.DestinationSeriesID == e.DestinationID {
			delete(c.events, id)
		}
	}
	return nil
}

func (c *seriesCalendar) ListInstances(_ context.Context, root *event.FeedEvent) ([]*event.FeedEvent, error) {
	c.calls = append(c.calls, "instances:"+root.DestinationID)
	stored, ok := c.events[root.DestinationID]
	if !ok {
		return nil, fmt.Errorf("unknown root %s", root.DestinationID)
	}

	opt, err := rrule.StrToROption(strings.TrimPrefix(stored.RecurrenceRule, "RRULE:"))
	if err != nil {
		return nil, err
	}
	opt.Dtstart = stored.Date.Start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}

	var out []*event.FeedEvent
	for _, t := range rule.All() {
		id := instanceID(root.DestinationID, t)
		if override, ok := c.events[id]; ok {
			out = append(out, override.Clone())
			continue
		}
		rs := t
		out = append(out, &event.FeedEvent{
			Event: event.Event{
				Title:           stored.Title,
				Date:            event.Date{Start: t, End: t.Add(stored.Date.Duration()), AllDay: stored.Date.AllDay},
				RecurrenceStart: &rs,
				DestinationID:   id,
			},
			SeriesUID:           stored.SeriesUID,
			Location:            stored.Location,
			Status:              stored.Status,
			ExceptionRule:       stored.ExceptionRule,
			DestinationSeriesID: root.DestinationID,
		})
	}
	return out, nil
}

// list returns roots plus overridden instances, like a non-expanded listing.
func (c *seriesCalendar) list() []*event.FeedEvent {
	out := make([]*event.FeedEvent, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DestinationID < out[j].DestinationID })
	return out
}

func instanceID(rootID string, occurrence time.Time) string {
	return rootID + "_" + occurrence.UTC().Format("20060102T150405Z")
}

func record(id, title string, start time.Time) *event.SourceEvent {
	return &event.SourceEvent{
		Event:        event.Event{Title: title, Date: mustDate(start, time.Hour)},
		RecordID:     id,
		CollectionID: "db-1",
	}
}

func feedRoot(uid, title string, start time.Time, rule string) *event.FeedEvent {
	e := &event.FeedEvent{
		Event:     event.Event{Title: title, Date: mustDate(start, time.Hour)},
		SeriesUID: uid,
		Status:    event.StatusConfirmed,
	}
	if rule != "" {
		e.RecurrenceRule = "RRULE:" + rule
		e.ExceptionRule = rule
	}
	return e
}

// feedException overrides the occurrence at occurrence with a new start.
func feedException(root *event.FeedEvent, occurrence, start time.Time) *event.FeedEvent {
	rs := occurrence
	return &event.FeedEvent{
		Event: event.Event{
			Title:           root.Title,
			Date:            mustDate(start, root.Date.Duration()),
			RecurrenceStart: &rs,
		},
		SeriesUID: root.SeriesUID,
		Location:  root.Location,
		Status:    root.Status,
	}
}

func mustDate(start time.Time, length time.Duration) event.Date {
	d, err := event.NewDate(start, start.Add(length), false)
	if err != nil {
		panic(err)
	}
	return d
}
