// Package event defines the calendar event model shared by every source and
// destination of the synchronizer.
//
// # Variants
//
// Two event variants exist, both embedding the common Event part:
//
//   - SourceEvent: an event derived from a structured record store (a Notion page).
//     Its identity is the record id; it carries a display tag and a link back to the record.
//   - FeedEvent: an event from an iCalendar feed or its destination counterpart.
//     Its identity is the series UID; occurrence overrides ("exceptions") share the
//     UID of their series and carry a RecurrenceStart.
//
// # Dates
//
// A Date always satisfies End > Start. All-day dates are normalized to midnight
// UTC of their calendar day. Timed values must carry zone information; textual
// timestamps without an offset are rejected with a ValidationError.
//
// # Usage
//
//	d, err := event.ParseDate("2024-01-10T10:00:00+01:00", "")
//	ev := &event.FeedEvent{Event: event.Event{Title: "Standup", Date: d}, SeriesUID: "abc"}
package event
