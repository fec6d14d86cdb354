package integrity

import (
	"calendar-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/databases", h.HandleDatabaseCheck)
	group.Get("/feeds", h.HandleFeedCheck)
	group.Get("/storage", h.HandleStorageCheck)
}

// HandleIntegrityCheck triggers all integrity checks. Failed checks answer
// 503 with the same report.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := h.service.CheckAll(c.Context(), c.QueryBool("fix"))
	if !report.OK {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleDatabaseCheck checks the Notion databases.
func (h *Handler) HandleDatabaseCheck(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckDatabases(c.Context()))
}

// HandleFeedCheck checks the iCalendar feeds.
func (h *Handler) HandleFeedCheck(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckFeeds(c.Context()))
}

// HandleStorageCheck checks and optionally creates the archive bucket.
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report := h.service.CheckStorage(c.Context(), c.QueryBool("fix"))
	if report == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report archive disabled"})
	}
	if report.Error != "" {
		l.Error("Storage check failed", zap.String("error", report.Error))
		return c.Status(fiber.StatusInternalServerError).JSON(report)
	}
	return c.JSON(report)
}
