package integrity

import (
	"context"
	"time"

	"calendar-sync/core/storage"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/integrity/checks"
	"calendar-sync/feature/notion"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallel bounds concurrent target checks.
const maxParallel = 4

// Dependencies are the collaborators of the checks. Storage is optional.
type Dependencies struct {
	Schema    checks.SchemaFetcher
	Feeds     checks.FeedLister
	Calendars checks.CalendarProber
	Storage   storage.Client
	Bucket    string
	Region    string
	Logger    *zap.Logger
}

// StorageReport is the outcome of the bucket check.
type StorageReport struct {
	Status string `json:"status"`
	Bucket string `json:"bucket"`
	Exists bool   `json:"exists"`
	Fixed  bool   `json:"fixed,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Report is the outcome of every check.
type Report struct {
	OK        bool                           `json:"ok"`
	Databases map[string]checks.TargetReport `json:"databases"`
	Feeds     map[string]checks.TargetReport `json:"feeds"`
	Storage   *StorageReport                 `json:"storage,omitempty"`
}

// Service handles integrity checks.
type Service struct {
	databases []notion.Database
	feeds     []ical.Feed
	deps      Dependencies
	logger    *zap.Logger
}

// NewService creates a new integrity service.
func NewService(databases []notion.Database, feeds []ical.Feed, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{databases: databases, feeds: feeds, deps: deps, logger: logger}
}

// CheckDatabases checks every database concurrently.
func (s *Service) CheckDatabases(ctx context.Context) map[string]checks.TargetReport {
	reports := make([]checks.TargetReport, len(s.databases))
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, db := range s.databases {
		g.Go(func() error {
			reports[i] = checks.CheckDatabase(ctx, s.deps.Schema, s.deps.Calendars, db)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]checks.TargetReport, len(reports))
	for i, db := range s.databases {
		out[db.Name] = reports[i]
	}
	return out
}

// CheckFeeds checks every feed concurrently. Only events of the last day are
// counted.
func (s *Service) CheckFeeds(ctx context.Context) map[string]checks.TargetReport {
	since := time.Now().Add(-24 * time.Hour)
	reports := make([]checks.TargetReport, len(s.feeds))
	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, feed := range s.feeds {
		g.Go(func() error {
			reports[i] = checks.CheckFeed(ctx, s.deps.Feeds, s.deps.Calendars, feed, since)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]checks.TargetReport, len(reports))
	for i, feed := range s.feeds {
		out[feed.Name] = reports[i]
	}
	return out
}

// CheckStorage checks the archive bucket and creates it when fix is set.
// It returns nil when archiving is disabled.
func (s *Service) CheckStorage(ctx context.Context, fix bool) *StorageReport {
	if s.deps.Storage == nil {
		return nil
	}
	report := &StorageReport{Status: checks.StatusOK, Bucket: s.deps.Bucket}

	exists, err := checks.CheckBucket(ctx, s.deps.Storage, s.deps.Bucket)
	if err != nil {
		report.Status, report.Error = checks.StatusError, err.Error()
		return report
	}
	report.Exists = exists
	if exists {
		return report
	}

	s.logger.Warn("Archive bucket is missing", zap.String("bucket", s.deps.Bucket))
	if !fix {
		report.Status = checks.StatusError
		return report
	}
	if err := checks.FixBucket(ctx, s.deps.Storage, s.deps.Bucket, s.deps.Region, s.logger); err != nil {
		report.Status, report.Error = checks.StatusError, err.Error()
		return report
	}
	report.Exists, report.Fixed = true, true
	return report
}

// CheckAll runs every check.
func (s *Service) CheckAll(ctx context.Context, fix bool) *Report {
	report := &Report{
		Databases: s.CheckDatabases(ctx),
		Feeds:     s.CheckFeeds(ctx),
		Storage:   s.CheckStorage(ctx, fix),
	}

	report.OK = report.Storage == nil || report.Storage.Status == checks.StatusOK
	for name, r := range report.Databases {
		if r.Status != checks.StatusOK {
			report.OK = false
			s.logger.Warn("Database check failed", zap.String("database", name), zap.String("error", r.Error))
		}
	}
	for name, r := range report.Feeds {
		if r.Status != checks.StatusOK {
			report.OK = false
			s.logger.Warn("Feed check failed", zap.String("feed", name), zap.String("error", r.Error))
		}
	}
	return report
}
