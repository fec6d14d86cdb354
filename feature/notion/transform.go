package notion

import (
	"strings"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/utils"
)

// PageToEvent builds the source event of a page.
// The end of an all-day Notion range is inclusive and is moved to the next day.
func PageToEvent(page Page, db Database) (*event.SourceEvent, error) {
	title, err := pageTitle(page, db.TitleProperty)
	if err != nil {
		return nil, err
	}

	date, err := pageDate(page, db.DateProperty)
	if err != nil {
		return nil, err
	}

	var tag string
	if path := utils.SplitPath(db.TagPropertyPath); len(path) > 0 {
		if v, ok := utils.Lookup(page.Properties, path...); ok {
			tag = utils.ToString(v)
		}
	}

	return &event.SourceEvent{
		Event:        event.Event{Title: title, Date: date},
		RecordID:     page.ID,
		CollectionID: db.ID,
		Tag:          tag,
		URL:          page.URL,
	}, nil
}

func pageTitle(page Page, property string) (string, error) {
	v, ok := utils.Lookup(page.Properties, property, "title")
	if !ok {
		return "", &event.ValidationError{Field: "title", Value: property, Reason: "title property missing"}
	}
	parts, _ := v.([]any)
	var b strings.Builder
	for _, part := range parts {
		text, _ := utils.Lookup(part, "plain_text")
		b.WriteString(utils.ToString(text))
	}
	if b.Len() == 0 {
		return "", &event.ValidationError{Field: "title", Value: page.ID, Reason: "empty"}
	}
	return b.String(), nil
}

func pageDate(page Page, property string) (event.Date, error) {
	startRaw, ok := utils.Lookup(page.Properties, property, "date", "start")
	if !ok || startRaw == nil {
		return event.Date{}, &event.ValidationError{Field: "date", Value: page.ID, Reason: "date property missing"}
	}
	start, allDay, err := event.ParseTimestamp(utils.ToString(startRaw))
	if err != nil {
		return event.Date{}, err
	}

	var end time.Time
	if endRaw, ok := utils.Lookup(page.Properties, property, "date", "end"); ok && endRaw != nil {
		var endAllDay bool
		end, endAllDay, err = event.ParseTimestamp(utils.ToString(endRaw))
		if err != nil {
			return event.Date{}, err
		}
		if endAllDay != allDay {
			return event.Date{}, &event.ValidationError{Field: "end", Value: utils.ToString(endRaw), Reason: "mixes all-day and timed values"}
		}
		if allDay {
			end = end.AddDate(0, 0, 1)
		}
	}

	return event.NewDate(start, end, allDay)
}
