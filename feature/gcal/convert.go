package gcal

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"calendar-sync/core/event"

	gcal "google.golang.org/api/calendar/v3"
)

// Shared extended property keys.
const (
	PropNotionPageID     = "NotionPageId"
	PropNotionDatabaseID = "NotionDatabaseId"
	PropNotionTitle      = "NotionTitle"
	PropNotionTag        = "NotionIconPropertyValue"
	PropICalUID          = "ICalUid"
	PropICalRRule        = "ICalRRule"
	PropICalFeed         = "ICalFeed"
)

const (
	dayLayout        = "2006-01-02"
	exdateDayLayout  = "20060102"
	exdateTimeLayout = "20060102T150405"
)

func eventDateTime(t time.Time, allDay bool, zone bool) *gcal.EventDateTime {
	if allDay {
		return &gcal.EventDateTime{Date: t.Format(dayLayout)}
	}
	dt := &gcal.EventDateTime{DateTime: t.Format(time.RFC3339)}
	if zone {
		dt.TimeZone = zoneName(t)
	}
	return dt
}

// zoneName returns an IANA zone name for t. Recurring events need one.
func zoneName(t time.Time) string {
	name := t.Location().String()
	if name == "" || name == "Local" {
		return "UTC"
	}
	return name
}

func parseDateTime(dt *gcal.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, &event.ValidationError{Field: "date", Reason: "missing"}
	}
	if dt.Date != "" {
		t, err := time.Parse(dayLayout, dt.Date)
		if err != nil {
			return time.Time{}, false, &event.ValidationError{Field: "date", Value: dt.Date, Reason: err.Error()}
		}
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, dt.DateTime)
	if err != nil {
		return time.Time{}, false, &event.ValidationError{Field: "dateTime", Value: dt.DateTime, Reason: err.Error()}
	}
	if dt.TimeZone != "" {
		if loc, err := time.LoadLocation(dt.TimeZone); err == nil {
			t = t.In(loc)
		}
	}
	return t, false, nil
}

func parseDate(item *gcal.Event) (event.Date, error) {
	startDT := item.Start
	if startDT == nil {
		// Cancelled instances only carry their original start.
		startDT = item.OriginalStartTime
	}
	start, allDay, err := parseDateTime(startDT)
	if err != nil {
		return event.Date{}, err
	}
	var end time.Time
	if item.End != nil && (item.End.Date != "" || item.End.DateTime != "") {
		end, _, err = parseDateTime(item.End)
		if err != nil {
			return event.Date{}, err
		}
	}
	return event.NewDate(start, end, allDay)
}

func shared(item *gcal.Event) map[string]string {
	if item.ExtendedProperties == nil {
		return nil
	}
	return item.ExtendedProperties.Shared
}

func recordBody(e *event.SourceEvent, summary string) *gcal.Event {
	return &gcal.Event{
		Summary:     summary,
		Description: fmt.Sprintf("<a href='%s'>Notion</a>", e.URL),
		Start:       eventDateTime(e.Date.Start, e.Date.AllDay, false),
		End:         eventDateTime(e.Date.End, e.Date.AllDay, false),
		Source:      &gcal.EventSource{Title: e.Title, Url: e.URL},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Shared: map[string]string{
				PropNotionDatabaseID: e.CollectionID,
				PropNotionPageID:     e.RecordID,
				PropNotionTitle:      e.Title,
				PropNotionTag:        e.Tag,
			},
		},
	}
}

// recordFromGoogle rebuilds the source view of a destination event. Events
// without a record id were not written by this service.
func recordFromGoogle(item *gcal.Event) (*event.SourceEvent, error) {
	props := shared(item)
	pageID := props[PropNotionPageID]
	if pageID == "" {
		return nil, &event.ValidationError{Field: PropNotionPageID, Value: item.Id, Reason: "missing"}
	}
	date, err := parseDate(item)
	if err != nil {
		return nil, err
	}

	e := &event.SourceEvent{
		Event: event.Event{
			Title:         props[PropNotionTitle],
			Date:          date,
			DestinationID: item.Id,
		},
		RecordID:     pageID,
		CollectionID: props[PropNotionDatabaseID],
		Tag:          props[PropNotionTag],
	}
	if item.Source != nil {
		e.URL = item.Source.Url
	}
	return e, nil
}

func feedBody(e *event.FeedEvent) *gcal.Event {
	body := &gcal.Event{
		Summary:          e.Title,
		Location:         e.Location,
		Status:           string(e.Status),
		Start:            eventDateTime(e.Date.Start, e.Date.AllDay, true),
		End:              eventDateTime(e.Date.End, e.Date.AllDay, true),
		RecurringEventId: e.DestinationSeriesID,
		ExtendedProperties: &gcal.EventExtendedProperties{
			Shared: map[string]string{
				PropICalUID:  e.SeriesUID,
				PropICalFeed: e.FeedID,
			},
		},
	}
	if e.RecurrenceRule != "" {
		body.Recurrence = []string{e.RecurrenceRule}
		if line := exdateLine(e.ExcludedDates, e.Date.AllDay); line != "" {
			body.Recurrence = append(body.Recurrence, line)
		}
	}
	if e.ExceptionRule != "" {
		body.ExtendedProperties.Shared[PropICalRRule] = e.ExceptionRule
	}
	if e.RecurrenceStart != nil {
		body.OriginalStartTime = eventDateTime(*e.RecurrenceStart, e.Date.AllDay, true)
	}
	return body
}

// feedFromGoogle rebuilds the feed view of a destination event or instance.
func feedFromGoogle(item *gcal.Event) (*event.FeedEvent, error) {
	props := shared(item)
	uid := props[PropICalUID]
	if uid == "" {
		return nil, &event.ValidationError{Field: PropICalUID, Value: item.Id, Reason: "missing"}
	}
	date, err := parseDate(item)
	if err != nil {
		return nil, err
	}
	status, err := event.ParseStatus(item.Status)
	if err != nil {
		return nil, err
	}

	e := &event.FeedEvent{
		Event: event.Event{
			Title:         item.Summary,
			Date:          date,
			DestinationID: item.Id,
		},
		SeriesUID:           uid,
		FeedID:              props[PropICalFeed],
		Location:            item.Location,
		Status:              status,
		DestinationSeriesID: item.RecurringEventId,
	}

	if item.RecurringEventId == "" {
		// Instances inherit the root's properties; only roots echo the rule.
		e.ExceptionRule = props[PropICalRRule]
		for _, line := range item.Recurrence {
			switch {
			case strings.HasPrefix(line, "RRULE:"):
				e.RecurrenceRule = line
			case strings.HasPrefix(line, "EXDATE"):
				excluded, err := parseExdateLine(line)
				if err != nil {
					return nil, err
				}
				e.ExcludedDates = append(e.ExcludedDates, excluded...)
			}
		}
		slices.SortFunc(e.ExcludedDates, time.Time.Compare)
	}

	if item.OriginalStartTime != nil {
		rs, _, err := parseDateTime(item.OriginalStartTime)
		if err != nil {
			return nil, err
		}
		e.RecurrenceStart = &rs
	}
	return e, nil
}

// exdateLine renders excluded occurrences as one recurrence line. Timed
// values are written in UTC.
func exdateLine(dates []time.Time, allDay bool) string {
	if len(dates) == 0 {
		return ""
	}
	values := make([]string, len(dates))
	for i, t := range dates {
		if allDay {
			values[i] = t.Format(exdateDayLayout)
		} else {
			values[i] = t.UTC().Format(exdateTimeLayout) + "Z"
		}
	}
	if allDay {
		return "EXDATE;VALUE=DATE:" + strings.Join(values, ",")
	}
	return "EXDATE:" + strings.Join(values, ",")
}

// parseExdateLine reads an EXDATE recurrence line in any of the forms
// Google returns: UTC, TZID qualified or VALUE=DATE.
func parseExdateLine(line string) ([]time.Time, error) {
	head, list, ok := strings.Cut(line, ":")
	if !ok {
		return nil, &event.ValidationError{Field: "recurrence", Value: line, Reason: "malformed EXDATE"}
	}

	loc := time.UTC
	for _, param := range strings.Split(head, ";")[1:] {
		name, value, _ := strings.Cut(param, "=")
		if strings.EqualFold(name, "TZID") {
			l, err := time.LoadLocation(value)
			if err != nil {
				return nil, &event.ValidationError{Field: "recurrence", Value: value, Reason: "unknown timezone"}
			}
			loc = l
		}
	}

	var out []time.Time
	for _, v := range strings.Split(list, ",") {
		var (
			t   time.Time
			err error
		)
		switch {
		case len(v) == len(exdateDayLayout):
			t, err = time.Parse(exdateDayLayout, v)
		case strings.HasSuffix(v, "Z"):
			t, err = time.Parse(exdateTimeLayout+"Z", v)
		default:
			t, err = time.ParseInLocation(exdateTimeLayout, v, loc)
		}
		if err != nil {
			return nil, &event.ValidationError{Field: "recurrence", Value: v, Reason: err.Error()}
		}
		out = append(out, t)
	}
	return out, nil
}
