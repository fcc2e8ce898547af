package sidecar

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sidecar-sync/core/logger"
	"sidecar-sync/feature/sidecar/reconcile"
)

// Handler handles HTTP requests for sidecar synchronization.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sidecar routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sidecar")
	group.Post("/sync", h.HandleSync)
	group.Post("/sync/:uuid", h.HandleSyncOne)
	group.Post("/push", h.HandlePush)
}

// HandleSync runs a full forward sync pass over every book on the device
// and returns the per-book report.
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.SyncFromDevice(c.Context(), nil)
	if err != nil {
		l.Error("Sync pass failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}

// HandleSyncOne syncs a single book identified by its library UUID.
func (h *Handler) HandleSyncOne(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id := c.Params("uuid")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid book uuid",
		})
	}

	outcome, err := h.service.SyncOne(c.Context(), id)
	if err != nil {
		if errors.Is(err, reconcile.ErrBookNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "book not found",
			})
		}
		l.Error("Single book sync failed", zap.String("book_uuid", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(outcome)
}

// HandlePush creates sidecars on the device for books that are missing one.
func (h *Handler) HandlePush(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.PushMissingSidecars(c.Context())
	if err != nil {
		l.Error("Push pass failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(report)
}
