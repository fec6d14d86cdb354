package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"calendar-sync/core/event"
	"calendar-sync/core/history"
	"calendar-sync/core/logger"
	"calendar-sync/core/reconcile"
	"calendar-sync/core/utils"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/notion"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownTarget is returned when a named database or feed is not configured.
var ErrUnknownTarget = errors.New("unknown sync target")

// Targets lists the configured databases and feeds.
type Targets struct {
	Databases []notion.Database
	Feeds     []ical.Feed
}

// Validate checks every target and the uniqueness of names per kind.
func (t Targets) Validate() error {
	var errs error
	seen := make(map[string]bool)
	for _, db := range t.Databases {
		errs = multierr.Append(errs, db.Validate())
		if seen[db.Name] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate database name %q", db.Name))
		}
		seen[db.Name] = true
	}
	seen = make(map[string]bool)
	for _, f := range t.Feeds {
		errs = multierr.Append(errs, f.Validate())
		if seen[f.Name] {
			errs = multierr.Append(errs, fmt.Errorf("duplicate feed name %q", f.Name))
		}
		seen[f.Name] = true
	}
	return errs
}

// Dependencies are the collaborators of a Service. History, Archive, Pinger
// and Clock are optional.
type Dependencies struct {
	Records   RecordSource
	Feeds     FeedSource
	Calendars Calendars
	History   history.Repository
	Archive   *Archive
	Pinger    *Pinger
	Clock     utils.Clock
	Logger    *zap.Logger
}

// Selection narrows a full run.
type Selection struct {
	// Databases and Feeds select target kinds. Neither means both.
	Databases bool
	Feeds     bool
	// Target restricts the run to the named target.
	Target string
	DryRun bool
}

// Result is the outcome of one target run.
type Result struct {
	Run    *history.Run      `json:"run"`
	Report *reconcile.Report `json:"report,omitempty"`
}

// Service runs sync jobs. Runs are serialized.
type Service struct {
	cfg     Config
	targets Targets
	deps    Dependencies

	mu gosync.Mutex
}

// NewService creates a sync service.
func NewService(cfg Config, targets Targets, deps Dependencies) *Service {
	if deps.History == nil {
		deps.History = history.NopRepository{}
	}
	if deps.Clock == nil {
		deps.Clock = utils.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{cfg: cfg, targets: targets, deps: deps}
}

// Targets returns the configured targets.
func (s *Service) Targets() Targets {
	return s.targets
}

// History returns the run journal.
func (s *Service) History() history.Repository {
	return s.deps.History
}

// Archive returns the report archive, or nil.
func (s *Service) Archive() *Archive {
	return s.deps.Archive
}

// SyncDatabase syncs the named database.
func (s *Service) SyncDatabase(ctx context.Context, name string, dryRun bool) (*Result, error) {
	db, ok := s.database(name)
	if !ok {
		return nil, fmt.Errorf("database %q: %w", name, ErrUnknownTarget)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncDatabase(ctx, db, s.cfg.DryRun || dryRun)
}

// SyncFeed syncs the named feed.
func (s *Service) SyncFeed(ctx context.Context, name string, dryRun bool) (*Result, error) {
	feed, ok := s.feed(name)
	if !ok {
		return nil, fmt.Errorf("feed %q: %w", name, ErrUnknownTarget)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncFeed(ctx, feed, s.cfg.DryRun || dryRun)
}

// SyncAll syncs every selected target. A failing target does not stop the
// run; the returned error combines every failure. The push monitor is only
// pinged when all targets succeeded.
func (s *Service) SyncAll(ctx context.Context, sel Selection) ([]*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	both := !sel.Databases && !sel.Feeds
	dryRun := s.cfg.DryRun || sel.DryRun
	matches := func(name string) bool { return sel.Target == "" || sel.Target == name }

	var (
		results []*Result
		errs    error
		matched bool
	)
	if both || sel.Databases {
		for _, db := range s.targets.Databases {
			if !matches(db.Name) {
				continue
			}
			matched = true
			res, err := s.syncDatabase(ctx, db, dryRun)
			results = append(results, res)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("database %s: %w", db.Name, err))
			}
		}
	}
	if both || sel.Feeds {
		for _, feed := range s.targets.Feeds {
			if !matches(feed.Name) {
				continue
			}
			matched = true
			res, err := s.syncFeed(ctx, feed, dryRun)
			results = append(results, res)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("feed %s: %w", feed.Name, err))
			}
		}
	}

	if sel.Target != "" && !matched {
		return nil, fmt.Errorf("%q: %w", sel.Target, ErrUnknownTarget)
	}

	if errs == nil && s.deps.Pinger != nil {
		if err := s.deps.Pinger.Ping(ctx); err != nil {
			s.deps.Logger.Warn("Failed to reach push URL", zap.Error(err))
		}
	}

	s.deps.Logger.Info("Sync finished", zap.Int("targets", len(results)), zap.Bool("ok", errs == nil))
	return results, errs
}

func (s *Service) syncDatabase(ctx context.Context, db notion.Database, dryRun bool) (*Result, error) {
	now := s.deps.Clock.Now()
	run := history.NewRun(history.KindDatabase, db.Name, now)
	l := logger.WithTarget(s.deps.Logger, history.KindDatabase, db.Name)
	l.Info("Starting to sync database", zap.Bool("dry_run", dryRun))

	dst := s.deps.Calendars.Records(db)
	since := now.Add(-s.cfg.Cutoff())

	var source, existing []*event.SourceEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		source, err = s.deps.Records.ListRecords(gctx, db)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = dst.List(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.finish(ctx, l, run, nil, err)
	}

	driver := reconcile.NewDriver(s.options(dryRun), s.deps.Clock, l)
	report, err := driver.ReconcileRecords(ctx, dst, source, existing)
	return s.finish(ctx, l, run, report, err)
}

func (s *Service) syncFeed(ctx context.Context, feed ical.Feed, dryRun bool) (*Result, error) {
	now := s.deps.Clock.Now()
	run := history.NewRun(history.KindFeed, feed.Name, now)
	l := logger.WithTarget(s.deps.Logger, history.KindFeed, feed.Name)
	l.Info("Starting to sync feed", zap.Bool("dry_run", dryRun))

	dst := s.deps.Calendars.Series(feed)
	since := now.Add(-s.cfg.Cutoff())

	var source, existing []*event.FeedEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		source, err = s.deps.Feeds.ListEvents(gctx, feed, since)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = dst.List(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.finish(ctx, l, run, nil, err)
	}

	driver := reconcile.NewDriver(s.options(dryRun), s.deps.Clock, l)
	report, err := driver.ReconcileSeries(ctx, dst, source, existing)
	return s.finish(ctx, l, run, report, err)
}

func (s *Service) options(dryRun bool) reconcile.Options {
	return reconcile.Options{MaxCreateAge: s.cfg.MaxCreateAge(), DryRun: dryRun}
}

// finish journals and archives the run. Journal and archive failures are
// logged and do not fail the run.
func (s *Service) finish(ctx context.Context, l *zap.Logger, run *history.Run, report *reconcile.Report, err error) (*Result, error) {
	if err != nil {
		l.Error("Sync failed", zap.Error(err))
	}
	run.Finish(report, err, s.deps.Clock.Now())

	// Journal even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	if s.deps.Archive != nil && report != nil {
		key, aerr := s.deps.Archive.Store(ctx, run, report)
		if aerr != nil {
			l.Warn("Failed to archive report", zap.Error(aerr))
		}
		run.ReportKey = key
	}
	if herr := s.deps.History.Save(ctx, run); herr != nil {
		l.Warn("Failed to save run", zap.String("run_id", run.ID), zap.Error(herr))
	}

	l.Info("Done syncing",
		zap.String("run_id", run.ID),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	)
	return &Result{Run: run, Report: report}, err
}

func (s *Service) database(name string) (notion.Database, bool) {
	for _, db := range s.targets.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return notion.Database{}, false
}

func (s *Service) feed(name string) (ical.Feed, bool) {
	for _, f := range s.targets.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return ical.Feed{}, false
}
