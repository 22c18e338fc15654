package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/service"
	"github.com/edinmavric/lms-mern-sub002/internal/utils"
)

// ActivityHandler exposes the audit trail read models.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/stats", h.stats)
	router.Get("/:entityType/:entityID", h.entityHistory)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	req, err := parseActivityListRequest(c)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	result, err := h.service.List(c.Context(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.OK(c, result.Items, "activity retrieved", result.Pagination)
}

func (h *ActivityHandler) entityHistory(c *fiber.Ctx) error {
	entityType := c.Params("entityType")
	entityID, err := parseUintParam(c, "entityID")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	entries, err := h.service.EntityHistory(c.Context(), actorFromContext(c), entityType, entityID)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "entity history retrieved", entries)
}

func (h *ActivityHandler) stats(c *fiber.Ctx) error {
	hours, err := parseQueryInt(c, "window_hours")
	if err != nil || hours < 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid window_hours", nil)
	}

	stats, err := h.service.Stats(c.Context(), actorFromContext(c), time.Duration(hours)*time.Hour)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "activity stats retrieved", stats)
}

func parseActivityListRequest(c *fiber.Ctx) (dto.ActivityListRequest, error) {
	req := dto.ActivityListRequest{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		Severity:   c.Query("severity"),
	}

	var err error
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return req, err
	}
	if req.ActorID, err = parseQueryUint(c, "actor_id"); err != nil {
		return req, err
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return req, err
		}
		req.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return req, err
		}
		req.To = &to
	}

	return req, nil
}
