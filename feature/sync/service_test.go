package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"calendar-sync/core/event"
	"calendar-sync/core/history"
	"calendar-sync/core/reconcile"
	"calendar-sync/core/utils"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/notion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type serviceFixture struct {
	service   *Service
	records   *stubRecords
	feeds     *stubFeeds
	calendars *stubCalendars
	history   *memHistory
}

func newServiceFixture(t *testing.T, cfg Config, pinger *Pinger) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		records: &stubRecords{events: map[string][]*event.SourceEvent{
			"tasks": {
				testRecord("R1", "Write report", testNow.Add(-time.Hour)),
				testRecord("R2", "Review", testNow.Add(24*time.Hour)),
			},
		}},
		feeds: &stubFeeds{events: map[string][]*event.FeedEvent{
			"school": {testFeedEvent("U1", "Exam", testNow.Add(48*time.Hour))},
		}},
		calendars: newStubCalendars(),
		history:   &memHistory{},
	}
	targets := Targets{
		Databases: []notion.Database{testDatabase("tasks")},
		Feeds:     []ical.Feed{testFeed("school")},
	}
	f.service = NewService(cfg, targets, Dependencies{
		Records:   f.records,
		Feeds:     f.feeds,
		Calendars: f.calendars,
		History:   f.history,
		Pinger:    pinger,
		Clock:     &utils.MockClock{FixedNow: testNow},
		Logger:    zap.NewNop(),
	})
	return f
}

func pushServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestTargetsValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		targets := Targets{
			Databases: []notion.Database{testDatabase("a"), testDatabase("b")},
			Feeds:     []ical.Feed{testFeed("a")},
		}
		assert.NoError(t, targets.Validate())
	})

	t.Run("DuplicateNames", func(t *testing.T) {
		targets := Targets{
			Databases: []notion.Database{testDatabase("a"), testDatabase("a")},
			Feeds:     []ical.Feed{testFeed("f"), testFeed("f")},
		}
		err := targets.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate database name "a"`)
		assert.Contains(t, err.Error(), `duplicate feed name "f"`)
	})

	t.Run("InvalidTarget", func(t *testing.T) {
		db := testDatabase("a")
		db.CalendarID = ""
		err := Targets{Databases: []notion.Database{db}}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "calendar_id is required")
	})
}

func TestSyncDatabase(t *testing.T) {
	f := newServiceFixture(t, Config{}, nil)
	ctx := context.Background()

	res, err := f.service.SyncDatabase(ctx, "tasks", false)
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.Equal(t, 2, res.Report.Summary.Created)
	assert.Equal(t, history.KindDatabase, res.Run.Kind)
	assert.Equal(t, "tasks", res.Run.Target)
	assert.Equal(t, 2, res.Run.Created)
	assert.Empty(t, res.Run.Error)
	assert.Equal(t, 2, f.calendars.records["tasks"].len())

	t.Run("SecondRunIsNoop", func(t *testing.T) {
		writes := f.calendars.records["tasks"].writeCount()
		res, err := f.service.SyncDatabase(ctx, "tasks", false)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Report.Summary.Unchanged)
		assert.Empty(t, res.Report.Actions)
		assert.Equal(t, writes, f.calendars.records["tasks"].writeCount())
	})

	t.Run("Journaled", func(t *testing.T) {
		runs, err := f.history.List(ctx, history.Filter{Kind: history.KindDatabase})
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	})

	t.Run("UnknownDatabase", func(t *testing.T) {
		_, err := f.service.SyncDatabase(ctx, "missing", false)
		assert.ErrorIs(t, err, ErrUnknownTarget)
	})
}

func TestSyncDatabaseDryRun(t *testing.T) {
	f := newServiceFixture(t, Config{}, nil)

	res, err := f.service.SyncDatabase(context.Background(), "tasks", true)
	require.NoError(t, err)
	assert.True(t, res.Report.DryRun)
	assert.True(t, res.Run.DryRun)
	assert.Equal(t, 2, res.Report.Summary.Created)
	for _, a := range res.Report.Actions {
		assert.False(t, a.Executed)
	}
	assert.Zero(t, f.calendars.records["tasks"].len())

	t.Run("ForcedByConfig", func(t *testing.T) {
		f := newServiceFixture(t, Config{DryRun: true}, nil)
		res, err := f.service.SyncDatabase(context.Background(), "tasks", false)
		require.NoError(t, err)
		assert.True(t, res.Report.DryRun)
	})
}

func TestSyncDatabaseStaleRecord(t *testing.T) {
	f := newServiceFixture(t, Config{MaxCreateAgeDays: 1}, nil)
	f.records.events["tasks"] = append(f.records.events["tasks"], testRecord("R3", "Old", testNow.Add(-72*time.Hour)))

	res, err := f.service.SyncDatabase(context.Background(), "tasks", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Report.Summary.Created)
	assert.Equal(t, 1, res.Report.Summary.Skipped)
}

func TestSyncFeed(t *testing.T) {
	f := newServiceFixture(t, Config{}, nil)

	res, err := f.service.SyncFeed(context.Background(), "school", false)
	require.NoError(t, err)
	assert.Equal(t, history.KindFeed, res.Run.Kind)
	assert.Equal(t, 1, res.Report.Summary.Created)
	assert.Equal(t, 1, f.calendars.series["school"].len())

	_, err = f.service.SyncFeed(context.Background(), "tasks", false)
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestSyncSourceFailure(t *testing.T) {
	f := newServiceFixture(t, Config{}, nil)
	f.records.err = &reconcile.CommunicationError{Op: "notion.query", Err: errors.New("boom")}

	res, err := f.service.SyncDatabase(context.Background(), "tasks", false)
	require.Error(t, err)
	var ce *reconcile.CommunicationError
	assert.ErrorAs(t, err, &ce)
	require.NotNil(t, res)
	assert.Nil(t, res.Report)
	assert.Contains(t, res.Run.Error, "boom")

	runs, err := f.history.List(context.Background(), history.Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "boom")
}

func TestSyncHistoryFailureDoesNotFailRun(t *testing.T) {
	f := newServiceFixture(t, Config{}, nil)
	f.history.err = errors.New("database is locked")

	_, err := f.service.SyncDatabase(context.Background(), "tasks", false)
	assert.NoError(t, err)
}

func TestSyncAll(t *testing.T) {
	t.Run("PingsOnSuccess", func(t *testing.T) {
		srv, hits := pushServer(t, http.StatusOK)
		f := newServiceFixture(t, Config{}, NewPinger(srv.URL, srv.Client()))

		results, err := f.service.SyncAll(context.Background(), Selection{})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, history.KindDatabase, results[0].Run.Kind)
		assert.Equal(t, history.KindFeed, results[1].Run.Kind)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("NoPingOnFailure", func(t *testing.T) {
		srv, hits := pushServer(t, http.StatusOK)
		f := newServiceFixture(t, Config{}, NewPinger(srv.URL, srv.Client()))
		f.feeds.err = errors.New("feed unavailable")

		results, err := f.service.SyncAll(context.Background(), Selection{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "feed school")
		// The database still ran.
		require.Len(t, results, 2)
		assert.Equal(t, 2, results[0].Report.Summary.Created)
		assert.Zero(t, hits.Load())
	})

	t.Run("PingFailureIsIgnored", func(t *testing.T) {
		srv, hits := pushServer(t, http.StatusInternalServerError)
		f := newServiceFixture(t, Config{}, NewPinger(srv.URL, srv.Client()))

		_, err := f.service.SyncAll(context.Background(), Selection{})
		assert.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("KindSelection", func(t *testing.T) {
		f := newServiceFixture(t, Config{}, nil)

		results, err := f.service.SyncAll(context.Background(), Selection{Feeds: true})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "school", results[0].Run.Target)
	})

	t.Run("TargetSelection", func(t *testing.T) {
		f := newServiceFixture(t, Config{}, nil)

		results, err := f.service.SyncAll(context.Background(), Selection{Target: "tasks"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "tasks", results[0].Run.Target)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		f := newServiceFixture(t, Config{}, nil)

		results, err := f.service.SyncAll(context.Background(), Selection{Target: "nope"})
		assert.ErrorIs(t, err, ErrUnknownTarget)
		assert.Nil(t, results)
	})

	t.Run("LogsSummary", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		f := newServiceFixture(t, Config{}, nil)
		f.service.deps.Logger = zap.New(core)

		_, err := f.service.SyncAll(context.Background(), Selection{})
		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("Sync finished").Len())
		assert.Equal(t, 2, logs.FilterMessage("Done syncing").Len())
	})
}

func TestPinger(t *testing.T) {
	assert.Nil(t, NewPinger("", nil))

	srv, _ := pushServer(t, http.StatusNotFound)
	err := NewPinger(srv.URL, srv.Client()).Ping(context.Background())
	var ce *reconcile.CommunicationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "push", ce.Op)
}
