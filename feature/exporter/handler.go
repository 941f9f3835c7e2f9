package exporter

import (
	"errors"
	"net/url"
	"time"

	"resource-exporter/core/ingest"
	"resource-exporter/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DocumentSource returns the configured resources document.
type DocumentSource func() (*Document, error)

// Handler handles HTTP triggers for export runs.
type Handler struct {
	service     *Service
	documents   DocumentSource
	maxDuration time.Duration
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, documents DocumentSource, maxDuration time.Duration) *Handler {
	return &Handler{service: service, documents: documents, maxDuration: maxDuration}
}

// RegisterRoutes registers the exporter routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/sync", h.HandleSync)
	app.Get("/kinds", h.HandleKinds)

	group := app.Group("/resources")
	group.Post("/:kind/:id", h.HandleUpsert)
	group.Delete("/:kind/:id", h.HandleDelete)
}

// HandleSync runs a resources document. The request body, when present,
// replaces the configured document; otherwise a saved checkpoint is resumed.
// @Summary Run Sync
// @Description Runs a resources document within the sync time budget. Without a body the configured document (or its checkpoint) is used. Work that does not fit is returned as the remaining document.
// @Tags exporter
// @Accept json
// @Produce json
// @Param document body Document false "Resources document"
// @Success 200 {object} Summary "Run Summary"
// @Failure 400 {object} map[string]string "Invalid Document"
// @Failure 500 {object} map[string]interface{} "Internal Server Error"
// @Security ApiKeyAuth
// @Router /sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	ctx := c.UserContext()

	var doc *Document
	var err error
	if len(c.Body()) > 0 {
		doc, err = ParseDocument(c.Body())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	} else {
		if doc, err = h.documents(); err == nil {
			doc, err = h.service.Resume(ctx, doc)
		}
		if err != nil {
			l.Error("Failed to load resources document", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	l.Info("Starting sync", zap.Int("resources", len(doc.Resources)))
	summary, err := h.service.Run(ctx, doc, ingest.NewDeadlineBudget(h.maxDuration))
	if err != nil {
		l.Error("Sync finished with errors", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   err.Error(),
			"summary": summary,
		})
	}
	return c.JSON(summary)
}

// HandleKinds lists the kinds with a dedicated fetcher.
// @Summary List Kinds
// @Description Lists the resource kinds with a dedicated fetcher and whether other kinds fall back to Cloud Control.
// @Tags exporter
// @Produce json
// @Success 200 {object} map[string]interface{} "Kinds"
// @Security ApiKeyAuth
// @Router /kinds [get]
func (h *Handler) HandleKinds(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"kinds":    h.service.Kinds(),
		"fallback": h.service.orch.Registry().HasFallback(),
	})
}

// HandleUpsert fetches one resource and upserts its entities.
// @Summary Upsert Resource
// @Description Fetches one resource of a configured kind and upserts the mapped entities.
// @Tags exporter
// @Produce json
// @Param kind path string true "Resource kind (path escaped)"
// @Param id path string true "Resource identifier (path escaped)"
// @Param region query string false "Region of the resource config"
// @Success 200 {object} map[string]interface{} "Item Result"
// @Failure 404 {object} map[string]string "Kind Not Configured"
// @Failure 502 {object} map[string]interface{} "Resource Not Processed"
// @Security ApiKeyAuth
// @Router /resources/{kind}/{id} [post]
func (h *Handler) HandleUpsert(c *fiber.Ctx) error {
	return h.handleItem(c, ingest.ActionUpsert)
}

// HandleDelete deletes the entities of one resource.
// @Summary Delete Resource
// @Description Deletes the entities mapped from one resource identifier.
// @Tags exporter
// @Produce json
// @Param kind path string true "Resource kind (path escaped)"
// @Param id path string true "Resource identifier (path escaped)"
// @Param region query string false "Region of the resource config"
// @Success 200 {object} map[string]interface{} "Item Result"
// @Failure 404 {object} map[string]string "Kind Not Configured"
// @Failure 502 {object} map[string]interface{} "Resource Not Processed"
// @Security ApiKeyAuth
// @Router /resources/{kind}/{id} [delete]
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	return h.handleItem(c, ingest.ActionDelete)
}

func (h *Handler) handleItem(c *fiber.Ctx, action ingest.Action) error {
	l := logger.WithRayID(h.service.logger, c)

	kind, err := url.PathUnescape(c.Params("kind"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid kind"})
	}
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid identifier"})
	}

	doc, err := h.documents()
	if err != nil {
		l.Error("Failed to load resources document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := h.service.RunItem(c.UserContext(), doc, kind, c.Query("region"), id, action)
	if errors.Is(err, ErrUnknownKind) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	status := fiber.StatusOK
	if res.SkipDelete {
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{
		"action":      action,
		"entities":    res.Entities,
		"skip_delete": res.SkipDelete,
	})
}
