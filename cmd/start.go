package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"calendar-sync/core/loader"
	"calendar-sync/core/logger"
	"calendar-sync/core/middleware/auth"
	"calendar-sync/core/middleware/rayid"
	"calendar-sync/feature/integrity"
	"calendar-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the calendar sync server",
	Long: `Starts the HTTP server exposing the sync endpoints and, when
sync.schedule is set, runs every target on that cron schedule.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration and Logger
		cfg, logg, err := loadEnvironment()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 2. Wire the sync service
		env, err := bootstrap(context.Background(), cfg, logg)
		if err != nil {
			logg.Fatal("Failed to initialize sync service", zap.Error(err))
		}
		defer env.Close()

		// 3. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 4. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(sync.NewFeature(env.service, logg))
		mgr.Register(integrity.NewFeature(env.integrity))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Scheduler (optional)
		var scheduler *sync.Scheduler
		if cfg.Sync.Schedule != "" {
			scheduler, err = sync.NewScheduler(cfg.Sync.Schedule, env.service, logg)
			if err != nil {
				logg.Fatal("Failed to create scheduler", zap.Error(err))
			}
			scheduler.Start()
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("address", cfg.Server.Address()))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()
		if scheduler != nil {
			if err := scheduler.Stop(ctx); err != nil {
				logg.Warn("Scheduled run did not stop in time", zap.Error(err))
			}
		}
		if err := app.ShutdownWithContext(ctx); err != nil {
			logg.Warn("Server shutdown incomplete", zap.Error(err))
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
