package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"calendar-sync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncDatabases bool
	syncFeeds     bool
	syncTarget    string
	syncDryRun    bool
	syncPushURL   string
)

// syncCmd runs every configured target once.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Notion databases and iCalendar feeds into Google Calendar",
	Long: `Runs one synchronization of the configured targets and exits.

Every target is reconciled independently: a failing target is reported and
the run continues with the next one. The exit status is non-zero when any
target failed.

Examples:
  # Sync everything
  sync

  # Only the Notion databases, without touching the calendars
  sync --databases --dry-run

  # One feed, reporting success to a push monitor
  sync --target school --url https://status.example.com/api/push/abc`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncDatabases, "databases", false, "Sync the Notion databases")
	syncCmd.Flags().BoolVar(&syncFeeds, "feeds", false, "Sync the iCalendar feeds")
	syncCmd.Flags().StringVar(&syncTarget, "target", "", "Only sync the named database or feed")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report decisions without touching the calendars")
	syncCmd.Flags().StringVar(&syncPushURL, "url", "", "Push URL pinged after a successful run (overrides sync.push_url)")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer l.Sync()

	if syncPushURL != "" {
		cfg.Sync.PushURL = syncPushURL
	}

	env, err := bootstrap(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer env.Close()

	results, err := env.service.SyncAll(ctx, sync.Selection{
		Databases: syncDatabases,
		Feeds:     syncFeeds,
		Target:    syncTarget,
		DryRun:    syncDryRun,
	})
	for _, res := range results {
		printReport(l, res)
	}
	return err
}

// printReport logs the outcome of one target run.
func printReport(l *zap.Logger, res *sync.Result) {
	run := res.Run
	l = l.With(zap.String("kind", run.Kind), zap.String("target", run.Target))
	if res.Report == nil {
		l.Error("Target failed", zap.String("error", run.Error))
		return
	}

	s := res.Report.Summary
	l.Info("Sync report",
		zap.Bool("dry_run", run.DryRun),
		zap.Int("units", s.Units),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("reset", s.Reset),
		zap.Int("deleted", s.Deleted),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
	)

	// Show sample of actions (max 5 for logger)
	maxShow := min(len(res.Report.Actions), 5)
	for _, a := range res.Report.Actions[:maxShow] {
		l.Info("Action",
			zap.String("type", string(a.Type)),
			zap.String("key", a.Key),
			zap.String("title", a.Title),
			zap.String("reason", a.Reason),
			zap.Bool("executed", a.Executed),
		)
	}
	if len(res.Report.Actions) > maxShow {
		l.Info("More actions not shown", zap.Int("remaining", len(res.Report.Actions)-maxShow))
	}
	for _, f := range res.Report.Failures {
		l.Warn("Unit failed", zap.String("key", f.Key), zap.String("error", f.Error))
	}
}
