package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"calendar-sync/core/config"
	"calendar-sync/core/database"
	"calendar-sync/core/history"
	"calendar-sync/core/logger"
	"calendar-sync/core/storage"
	"calendar-sync/core/utils"
	"calendar-sync/feature/gcal"
	"calendar-sync/feature/ical"
	"calendar-sync/feature/integrity"
	"calendar-sync/feature/notion"
	"calendar-sync/feature/sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// environment is the wired application shared by the commands.
type environment struct {
	cfg       *config.Config
	logger    *zap.Logger
	service   *sync.Service
	integrity *integrity.Service
	db        *gorm.DB
}

// loadEnvironment reads the configuration and initializes the logger.
func loadEnvironment() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, l, nil
}

// bootstrap wires the sync service. The run journal and the report archive
// are optional: a failing journal database only produces a warning.
func bootstrap(ctx context.Context, cfg *config.Config, l *zap.Logger) (*environment, error) {
	targets := cfg.Targets()
	if err := targets.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sync targets: %w", err)
	}

	env := &environment{cfg: cfg, logger: l}

	// Run journal (optional)
	var repo history.Repository = history.NopRepository{}
	if cfg.Database.Enabled {
		if db, err := database.Connect(cfg.Database); err != nil {
			l.Warn("Optional database connection failed", zap.Error(err))
		} else {
			gormRepo := history.NewGormRepository(db)
			if err := gormRepo.Migrate(); err != nil {
				l.Warn("Run journal disabled", zap.Error(err))
			} else {
				env.db = db
				repo = gormRepo
				l.Info("Connected to run journal database", zap.String("driver", cfg.Database.Driver))
			}
		}
	}

	// Report archive (optional)
	var (
		store   storage.Client
		archive *sync.Archive
	)
	if cfg.Storage.Enabled {
		var err error
		store, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		archive = sync.NewArchive(store, cfg.Storage, l)
	}

	// Google Calendar
	httpClient, err := gcal.HTTPClient(ctx, cfg.Google)
	if err != nil {
		return nil, err
	}
	calendar, err := gcal.NewClient(ctx, cfg.Google, httpClient, l)
	if err != nil {
		return nil, err
	}

	// Sources
	clock := utils.SystemClock{}
	notionClient := notion.NewClient(cfg.Notion, &http.Client{Timeout: cfg.Notion.Timeout()}, l)
	schema := notion.NewSchemaCache(notionClient)
	records := notion.NewSource(notionClient, schema, clock, cfg.Sync.Cutoff(), l)
	feeds := ical.NewSource(ical.NewFetcher(cfg.ICal, nil), l)

	env.service = sync.NewService(cfg.Sync, targets, sync.Dependencies{
		Records:   records,
		Feeds:     feeds,
		Calendars: sync.NewGoogleCalendars(calendar, targets.Feeds),
		History:   repo,
		Archive:   archive,
		Pinger:    sync.NewPinger(cfg.Sync.PushURL, &http.Client{Timeout: 10 * time.Second}),
		Clock:     clock,
		Logger:    l,
	})

	env.integrity = integrity.NewService(targets.Databases, targets.Feeds, integrity.Dependencies{
		Schema:    schema,
		Feeds:     feeds,
		Calendars: calendar,
		Storage:   store,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Logger:    l,
	})

	l.Info("Sync targets loaded",
		zap.Int("databases", len(targets.Databases)),
		zap.Int("feeds", len(targets.Feeds)),
		zap.Bool("journal", env.db != nil),
		zap.Bool("archive", archive != nil),
	)
	return env, nil
}

// Close releases the journal database.
func (e *environment) Close() {
	if e.db == nil {
		return
	}
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
