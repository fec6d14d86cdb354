package ical

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"calendar-sync/core/event"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

// Parse parses a feed body. Events that cannot be converted are logged and
// skipped; only an unreadable calendar is an error.
func Parse(feed Feed, body []byte, logger *zap.Logger) ([]*event.FeedEvent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("feed %s: empty body", feed.Name)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: failed to parse calendar: %w", feed.Name, err)
	}

	vevents := cal.Events()
	events := make([]*event.FeedEvent, 0, len(vevents))
	for _, ve := range vevents {
		e, err := parseEvent(feed, ve)
		if err != nil {
			logger.Warn("Skipping feed event", zap.String("feed", feed.Name), zap.String("uid", ve.Id()), zap.Error(err))
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func parseEvent(feed Feed, ve *ical.VEvent) (*event.FeedEvent, error) {
	uid := propertyValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return nil, &event.ValidationError{Field: "uid", Reason: "missing"}
	}

	start, allDay, err := parseTime(ve.GetProperty(ical.ComponentPropertyDtStart))
	if err != nil {
		return nil, err
	}

	var end time.Time
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		var endAllDay bool
		end, endAllDay, err = parseTime(p)
		if err != nil {
			return nil, err
		}
		if endAllDay != allDay {
			return nil, &event.ValidationError{Field: "dtend", Value: p.Value, Reason: "mixes all-day and timed values"}
		}
	} else if p := ve.GetProperty(ical.ComponentPropertyDuration); p != nil {
		d, err := parseDuration(p.Value)
		if err != nil {
			return nil, err
		}
		// A zero length keeps the default end.
		if days := int(d / (24 * time.Hour)); allDay && days > 0 {
			end = start.AddDate(0, 0, days)
		} else if !allDay && d > 0 {
			end = start.Add(d)
		}
	}

	date, err := event.NewDate(start, end, allDay)
	if err != nil {
		return nil, err
	}

	status, err := event.ParseStatus(propertyValue(ve, ical.ComponentPropertyStatus))
	if err != nil {
		return nil, err
	}

	e := &event.FeedEvent{
		Event: event.Event{
			Title: propertyValue(ve, ical.ComponentPropertySummary),
			Date:  date,
		},
		SeriesUID: uid,
		FeedID:    feed.Name,
		Location:  strings.TrimSpace(propertyValue(ve, ical.ComponentPropertyLocation)),
		Status:    status,
	}

	if rule := propertyValue(ve, ical.ComponentPropertyRrule); rule != "" {
		if _, err := rrule.StrToROption(rule); err != nil {
			return nil, &event.ValidationError{Field: "rrule", Value: rule, Reason: err.Error()}
		}
		e.RecurrenceRule = "RRULE:" + rule
		e.ExceptionRule = rule

		e.ExcludedDates, err = excludedDates(ve)
		if err != nil {
			return nil, err
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		rs, _, err := parseTime(p)
		if err != nil {
			return nil, err
		}
		e.RecurrenceStart = &rs
	}

	return e, nil
}

// excludedDates collects the EXDATE values of a root. A property may list
// several comma separated values sharing its parameters.
func excludedDates(ve *ical.VEvent) ([]time.Time, error) {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, v := range strings.Split(p.Value, ",") {
			t, _, err := parseTime(&ical.IANAProperty{BaseProperty: ical.BaseProperty{
				IANAToken:      p.IANAToken,
				ICalParameters: p.ICalParameters,
				Value:          v,
			}})
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	slices.SortFunc(out, time.Time.Compare)
	return slices.CompactFunc(out, time.Time.Equal), nil
}

func propertyValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// parseTime reads a DATE or DATE-TIME property. UTC values end in "Z";
// local values need a TZID. Floating times are rejected.
func parseTime(p *ical.IANAProperty) (time.Time, bool, error) {
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return time.Time{}, false, &event.ValidationError{Field: "dtstart", Reason: "missing"}
	}
	field := strings.ToLower(p.IANAToken)
	value := strings.TrimSpace(p.Value)

	if strings.EqualFold(param(p, "VALUE"), "DATE") || len(value) == len(dateLayout) {
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return time.Time{}, false, &event.ValidationError{Field: field, Value: value, Reason: err.Error()}
		}
		return t, true, nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(dateTimeLayout+"Z", value)
		if err != nil {
			return time.Time{}, false, &event.ValidationError{Field: field, Value: value, Reason: err.Error()}
		}
		return t, false, nil
	}

	tzid := param(p, "TZID")
	if tzid == "" {
		return time.Time{}, false, &event.ValidationError{Field: field, Value: value, Reason: "floating time without timezone"}
	}
	loc, err := time.LoadLocation(tzid)
	if err != nil {
		return time.Time{}, false, &event.ValidationError{Field: field, Value: tzid, Reason: "unknown timezone"}
	}
	t, err := time.ParseInLocation(dateTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, false, &event.ValidationError{Field: field, Value: value, Reason: err.Error()}
	}
	return t, false, nil
}

func param(p *ical.IANAProperty, name string) string {
	if vs := p.ICalParameters[name]; len(vs) > 0 {
		return strings.Trim(vs[0], `"`)
	}
	return ""
}
