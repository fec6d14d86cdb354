package event

import (
	"slices"
	"time"
)

// Event holds the fields shared by every event variant.
type Event struct {
	// Title is the plain title, without any display decoration.
	Title string `json:"title"`
	Date  Date   `json:"date"`
	// RecurrenceRule is the destination-native rule ("RRULE:...") of a series root.
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
	// RecurrenceStart is the original start of the occurrence an exception overrides.
	RecurrenceStart *time.Time `json:"recurrence_start,omitempty"`
	// DestinationID is empty until the event exists in the destination calendar.
	DestinationID string `json:"destination_id,omitempty"`
}

// Reconcilable is implemented by every event variant.
type Reconcilable interface {
	Base() *Event
}

// Base returns the common part of the event.
func (e *Event) Base() *Event {
	return e
}

// IsRecurring reports whether the event is a series root with a recurrence rule.
func (e *Event) IsRecurring() bool {
	return e.RecurrenceRule != ""
}

// IsException reports whether the event overrides a single occurrence.
func (e *Event) IsException() bool {
	return e.RecurrenceStart != nil
}

// Created reports whether the event exists in the destination calendar.
func (e *Event) Created() bool {
	return e.DestinationID != ""
}

// Age returns the time elapsed between the event start and now.
func (e *Event) Age(now time.Time) time.Duration {
	return now.Sub(e.Date.Start)
}

// SourceEvent is an event derived from a structured record.
type SourceEvent struct {
	Event
	// RecordID is the immutable id of the originating record.
	RecordID string `json:"record_id"`
	// CollectionID is the id of the record collection (database) the record lives in.
	CollectionID string `json:"collection_id"`
	// Tag is the raw value of the property used to decorate the display title.
	Tag string `json:"tag,omitempty"`
	// URL links back to the record.
	URL string `json:"url,omitempty"`
}

// FeedEvent is an event from an iCalendar feed or its destination counterpart.
type FeedEvent struct {
	Event
	// SeriesUID groups a recurring root with its exceptions.
	SeriesUID string `json:"series_uid"`
	// FeedID names the feed the event belongs to.
	FeedID   string `json:"feed_id,omitempty"`
	Location string `json:"location,omitempty"`
	Status   Status `json:"status"`
	// ExceptionRule is the raw feed rule, echoed on the destination so that
	// rule changes are detected.
	ExceptionRule string `json:"exception_rule,omitempty"`
	// ExcludedDates are occurrences of a root cancelled with EXDATE, ascending.
	ExcludedDates []time.Time `json:"excluded_dates,omitempty"`
	// DestinationSeriesID is the destination id of the root an instance belongs to.
	DestinationSeriesID string `json:"destination_series_id,omitempty"`
}

// Clone returns a copy of the event that shares no mutable state with e.
func (e *FeedEvent) Clone() *FeedEvent {
	c := *e
	if e.RecurrenceStart != nil {
		rs := *e.RecurrenceStart
		c.RecurrenceStart = &rs
	}
	c.ExcludedDates = slices.Clone(e.ExcludedDates)
	return &c
}

// Clone returns a copy of the event.
func (e *SourceEvent) Clone() *SourceEvent {
	c := *e
	if e.RecurrenceStart != nil {
		rs := *e.RecurrenceStart
		c.RecurrenceStart = &rs
	}
	return &c
}
