package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/service"
	"github.com/edinmavric/lms-mern-sub002/internal/utils"
)

// SubscriptionHandler manages exam subscription endpoints.
type SubscriptionHandler struct {
	service service.SubscriptionService
	logger  zerolog.Logger
}

// NewSubscriptionHandler builds a subscription handler instance.
func NewSubscriptionHandler(service service.SubscriptionService, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		logger:  logger.With().Str("component", "subscription_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubscriptionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.subscribe)
	router.Post("/:id/grade", h.grade)
	router.Delete("/:id", h.unsubscribe)
}

func (h *SubscriptionHandler) subscribe(c *fiber.Ctx) error {
	var payload struct {
		ExamID uint `json:"exam_id"`
	}
	if err := c.BodyParser(&payload); err != nil || payload.ExamID == 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "exam_id is required", nil)
	}

	subscription, err := h.service.Subscribe(c.Context(), actorFromContext(c), payload.ExamID)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "subscribed to exam", subscription)
}

func (h *SubscriptionHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var payload dto.GradeSubscriptionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	result, err := h.service.Grade(c.Context(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "subscription graded", result)
}

func (h *SubscriptionHandler) unsubscribe(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := h.service.Unsubscribe(c.Context(), actorFromContext(c), id); err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "subscription removed", nil)
}

// list serves both the owner view and the roster view. Students always get
// their own subscriptions; staff passing exam_id get the roster for that exam.
func (h *SubscriptionHandler) list(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid exam_id", nil)
	}

	if examID != 0 {
		subscriptions, err := h.service.ListByExam(c.Context(), actor, examID)
		if err != nil {
			return respondError(c, requestLogger(h.logger, c), err)
		}
		return utils.SendSuccess(c, "subscriptions retrieved", subscriptions)
	}

	subscriptions, err := h.service.ListOwn(c.Context(), actor)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}
	return utils.SendSuccess(c, "subscriptions retrieved", subscriptions)
}
