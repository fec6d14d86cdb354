package ical

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testFeed = Feed{Name: "work", URL: "https://example.com/work.ics", CalendarID: "cal-1"}

func calendar(events ...string) []byte {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}
	for _, e := range events {
		lines = append(lines, "BEGIN:VEVENT")
		lines = append(lines, strings.Split(strings.TrimSpace(e), "\n")...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR", "")
	return []byte(strings.Join(lines, "\r\n"))
}

const (
	standup = `UID:standup
SUMMARY:Standup
LOCATION:Room 1
STATUS:CONFIRMED
DTSTART;TZID=Europe/Amsterdam:20240101T093000
DTEND;TZID=Europe/Amsterdam:20240101T094500
RRULE:FREQ=WEEKLY;BYDAY=MO`

	standupMoved = `UID:standup
SUMMARY:Standup
LOCATION:Room 1
RECURRENCE-ID;TZID=Europe/Amsterdam:20240108T093000
DTSTART;TZID=Europe/Amsterdam:20240108T113000
DTEND;TZID=Europe/Amsterdam:20240108T114500`

	holiday = `UID:holiday
SUMMARY:Holiday
STATUS:TENTATIVE
DTSTART;VALUE=DATE:20240220
DTEND;VALUE=DATE:20240222`

	review = `UID:review
SUMMARY:Review\, part 2
DTSTART:20240225T140000Z
DTEND:20240225T150000Z`
)

func TestParse(t *testing.T) {
	events, err := Parse(testFeed, calendar(standup, standupMoved, holiday, review), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, events, 4)

	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	root := events[0]
	assert.Equal(t, "standup", root.SeriesUID)
	assert.Equal(t, "work", root.FeedID)
	assert.Equal(t, "Standup", root.Title)
	assert.Equal(t, "Room 1", root.Location)
	assert.Equal(t, event.StatusConfirmed, root.Status)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;BYDAY=MO", root.RecurrenceRule)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", root.ExceptionRule)
	assert.True(t, root.Date.Start.Equal(time.Date(2024, 1, 1, 9, 30, 0, 0, ams)))
	assert.Equal(t, 15*time.Minute, root.Date.Duration())
	assert.Nil(t, root.RecurrenceStart)

	moved := events[1]
	require.NotNil(t, moved.RecurrenceStart)
	assert.True(t, moved.RecurrenceStart.Equal(time.Date(2024, 1, 8, 9, 30, 0, 0, ams)))
	assert.Empty(t, moved.RecurrenceRule)
	assert.Equal(t, event.StatusConfirmed, moved.Status, "missing status means confirmed")

	day := events[2]
	assert.True(t, day.Date.AllDay)
	assert.Equal(t, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), day.Date.Start)
	assert.Equal(t, 48*time.Hour, day.Date.Duration())
	assert.Equal(t, event.StatusTentative, day.Status)

	assert.Equal(t, "Review, part 2", events[3].Title)
	assert.Equal(t, time.UTC, events[3].Date.Start.Location())
}

func TestParseDuration(t *testing.T) {
	events, err := Parse(testFeed, calendar(
		"UID:workshop\nDTSTART:20240110T090000Z\nDURATION:PT2H",
		"UID:retreat\nDTSTART;VALUE=DATE:20240301\nDURATION:P3D",
		"UID:instant\nDTSTART:20240110T090000Z\nDURATION:PT0S",
	), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.True(t, events[0].Date.End.Equal(time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2*time.Hour, events[0].Date.Duration())

	assert.True(t, events[1].Date.AllDay)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), events[1].Date.End)

	assert.Equal(t, event.DefaultTimedLength, events[2].Date.Duration(), "zero length keeps the default")
}

func TestParseDurationValue(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"PT15M", 15 * time.Minute},
		{"PT1H30M", 90 * time.Minute},
		{"P1DT12H", 36 * time.Hour},
		{"+P2W", 14 * 24 * time.Hour},
		{"PT45S", 45 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseDuration(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "P", "2H", "PT", "P1H", "PT1D", "-PT1H", "PT1H2", "PTT1H"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseExcludedDates(t *testing.T) {
	body := calendar(`UID:yoga
SUMMARY:Yoga
DTSTART;TZID=Europe/Amsterdam:20240101T180000
DTEND;TZID=Europe/Amsterdam:20240101T190000
RRULE:FREQ=WEEKLY
EXDATE;TZID=Europe/Amsterdam:20240115T180000,20240108T180000
EXDATE:20240122T170000Z
EXDATE;TZID=Europe/Amsterdam:20240108T180000`, `UID:once
DTSTART:20240110T090000Z
EXDATE:20240110T090000Z`)

	events, err := Parse(testFeed, body, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, events, 2)

	ams, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)
	want := []time.Time{
		time.Date(2024, 1, 8, 18, 0, 0, 0, ams),
		time.Date(2024, 1, 15, 18, 0, 0, 0, ams),
		time.Date(2024, 1, 22, 18, 0, 0, 0, ams),
	}
	got := events[0].ExcludedDates
	require.Len(t, got, len(want), "sorted and deduplicated")
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "excluded date %d: %s", i, got[i])
	}

	assert.Empty(t, events[1].ExcludedDates, "only recurring roots keep exclusions")
}

func TestParseSkipsInvalidEvents(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	invalid := []string{
		"SUMMARY:No uid\nDTSTART:20240225T140000Z",
		"UID:floating\nDTSTART:20240225T140000",
		"UID:badzone\nDTSTART;TZID=Mars/Olympus:20240225T140000",
		"UID:badstatus\nSTATUS:MAYBE\nDTSTART:20240225T140000Z",
		"UID:badrule\nRRULE:FREQ=SOMETIMES\nDTSTART:20240225T140000Z",
		"UID:backwards\nDTSTART:20240225T140000Z\nDTEND:20240225T130000Z",
		"UID:mixed\nDTSTART;VALUE=DATE:20240225\nDTEND:20240226T130000Z",
		"UID:badduration\nDTSTART:20240225T140000Z\nDURATION:two hours",
		"UID:badexdate\nRRULE:FREQ=DAILY\nDTSTART:20240225T140000Z\nEXDATE:20240226T140000",
	}
	events, err := Parse(testFeed, calendar(append(invalid, review)...), zap.New(core))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "review", events[0].SeriesUID)
	assert.Equal(t, len(invalid), logs.FilterMessage("Skipping feed event").Len())
}

func TestParseInvalidCalendar(t *testing.T) {
	_, err := Parse(testFeed, nil, nil)
	assert.Error(t, err)

	_, err = Parse(testFeed, []byte("not a calendar"), nil)
	assert.Error(t, err)
}

func TestFeedValidate(t *testing.T) {
	assert.NoError(t, testFeed.Validate())
	assert.Error(t, Feed{}.Validate())
	assert.Error(t, Feed{Name: "x"}.Validate())
	assert.Error(t, Feed{Name: "x", URL: "u"}.Validate())
}

func TestListEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "calendar-sync", r.Header.Get("User-Agent"))
		if r.URL.Path != "/work.ics" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write(calendar(standup, standupMoved, holiday, review))
	}))
	defer srv.Close()

	src := NewSource(NewFetcher(Config{UserAgent: "calendar-sync"}, srv.Client()), zap.NewNop())
	feed := testFeed
	feed.URL = srv.URL + "/work.ics"

	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	events, err := src.ListEvents(context.Background(), feed, since)
	require.NoError(t, err)

	var uids []string
	for _, e := range events {
		uids = append(uids, e.SeriesUID)
	}
	// The old exception is dropped, the old recurring root is kept.
	assert.Equal(t, []string{"standup", "holiday", "review"}, uids)
	assert.True(t, events[0].IsRecurring())

	t.Run("NotFound", func(t *testing.T) {
		feed.URL = srv.URL + "/missing.ics"
		_, err := src.ListEvents(context.Background(), feed, since)
		var ce *reconcile.CommunicationError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "ical.fetch", ce.Op)
		assert.Contains(t, err.Error(), "feed work")
	})
}
