package sync

import (
	"errors"

	"calendar-sync/core/history"
	"calendar-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync jobs.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleSyncAll)
	group.Post("/databases/:name", h.HandleSyncDatabase)
	group.Post("/feeds/:name", h.HandleSyncFeed)
	group.Get("/runs", h.HandleListRuns)
	group.Get("/runs/:id", h.HandleGetRun)
	group.Get("/runs/:id/report", h.HandleGetReport)
}

// HandleSyncAll runs every selected target.
// Query parameters: databases, feeds, target, dry_run.
func (h *Handler) HandleSyncAll(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	sel := Selection{
		Databases: c.QueryBool("databases"),
		Feeds:     c.QueryBool("feeds"),
		Target:    c.Query("target"),
		DryRun:    c.QueryBool("dry_run"),
	}

	results, err := h.service.SyncAll(c.Context(), sel)
	if errors.Is(err, ErrUnknownTarget) && results == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Sync run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"results": results,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"results": results})
}

// HandleSyncDatabase runs one database.
func (h *Handler) HandleSyncDatabase(c *fiber.Ctx) error {
	res, err := h.service.SyncDatabase(c.Context(), c.Params("name"), c.QueryBool("dry_run"))
	return h.respond(c, res, err)
}

// HandleSyncFeed runs one feed.
func (h *Handler) HandleSyncFeed(c *fiber.Ctx) error {
	res, err := h.service.SyncFeed(c.Context(), c.Params("name"), c.QueryBool("dry_run"))
	return h.respond(c, res, err)
}

func (h *Handler) respond(c *fiber.Ctx, res *Result, err error) error {
	if errors.Is(err, ErrUnknownTarget) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Sync run failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"result": res,
			"error":  err.Error(),
		})
	}
	return c.JSON(res)
}

// HandleListRuns returns journaled runs, newest first.
// Query parameters: kind, target, limit.
func (h *Handler) HandleListRuns(c *fiber.Ctx) error {
	runs, err := h.service.History().List(c.Context(), history.Filter{
		Kind:   c.Query("kind"),
		Target: c.Query("target"),
		Limit:  c.QueryInt("limit"),
	})
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Listing runs failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(runs)
}

// HandleGetRun returns one journaled run.
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	run, err := h.service.History().Get(c.Context(), c.Params("id"))
	if errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(run)
}

// HandleGetReport returns the archived report of a run.
func (h *Handler) HandleGetReport(c *fiber.Ctx) error {
	run, err := h.service.History().Get(c.Context(), c.Params("id"))
	if errors.Is(err, history.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	archive := h.service.Archive()
	if archive == nil || run.ReportKey == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not archived"})
	}

	data, err := archive.Load(c.Context(), run.ReportKey)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Loading report failed", zap.String("key", run.ReportKey), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
