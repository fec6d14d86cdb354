package event

import (
	"strings"
	"time"
)

const (
	// DefaultAllDayLength is used when an all-day date has no explicit end.
	DefaultAllDayLength = 24 * time.Hour
	// DefaultTimedLength is used when a timed date has no explicit end.
	DefaultTimedLength = 30 * time.Minute

	dayLayout = "2006-01-02"
)

// Date is the time span of an event.
type Date struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`
}

// NewDate builds a validated Date. A zero end is replaced by the default length
// for the kind of date. All-day bounds are truncated to midnight UTC.
func NewDate(start, end time.Time, allDay bool) (Date, error) {
	if start.IsZero() {
		return Date{}, &ValidationError{Field: "start", Reason: "missing"}
	}

	if allDay {
		start = midnightUTC(start)
		if end.IsZero() {
			end = start.Add(DefaultAllDayLength)
		} else {
			end = midnightUTC(end)
		}
	} else if end.IsZero() {
		end = start.Add(DefaultTimedLength)
	}

	if !end.After(start) {
		return Date{}, &ValidationError{
			Field:  "end",
			Value:  end.Format(time.RFC3339),
			Reason: "must be after start " + start.Format(time.RFC3339),
		}
	}

	return Date{Start: start, End: end, AllDay: allDay}, nil
}

// Duration returns End - Start.
func (d Date) Duration() time.Duration {
	return d.End.Sub(d.Start)
}

// Equal reports whether both dates describe the same span.
func (d Date) Equal(o Date) bool {
	return d.AllDay == o.AllDay && d.Start.Equal(o.Start) && d.End.Equal(o.End)
}

// ParseTimestamp parses a calendar day ("2006-01-02") or an RFC 3339 timestamp.
// Timestamps without a zone designator are rejected.
func ParseTimestamp(value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, &ValidationError{Field: "timestamp", Reason: "empty"}
	}

	if len(value) == len(dayLayout) {
		t, err := time.Parse(dayLayout, value)
		if err != nil {
			return time.Time{}, false, &ValidationError{Field: "timestamp", Value: value, Reason: err.Error()}
		}
		return t, true, nil
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		if _, naive := time.Parse("2006-01-02T15:04:05.999999999", value); naive == nil {
			return time.Time{}, false, &ValidationError{Field: "timestamp", Value: value, Reason: "missing timezone"}
		}
		return time.Time{}, false, &ValidationError{Field: "timestamp", Value: value, Reason: "unrecognized format"}
	}
	return t, false, nil
}

// ParseDate builds a Date from a start and an optional end timestamp. The date
// is all-day when the start is a calendar day.
func ParseDate(start, end string) (Date, error) {
	s, allDay, err := ParseTimestamp(start)
	if err != nil {
		return Date{}, err
	}

	var e time.Time
	if strings.TrimSpace(end) != "" {
		var endAllDay bool
		e, endAllDay, err = ParseTimestamp(end)
		if err != nil {
			return Date{}, err
		}
		if endAllDay != allDay {
			return Date{}, &ValidationError{Field: "end", Value: end, Reason: "mixes all-day and timed values"}
		}
	}

	return NewDate(s, e, allDay)
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
