package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/service"
	"github.com/edinmavric/lms-mern-sub002/internal/utils"
)

// ExamHandler manages exam scheduling endpoints.
type ExamHandler struct {
	service service.ExamService
	logger  zerolog.Logger
}

// NewExamHandler builds an exam handler instance.
func NewExamHandler(service service.ExamService, logger zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		service: service,
		logger:  logger.With().Str("component", "exam_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ExamHandler) Register(router fiber.Router) {
	router.Get("", h.listByCourse)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.remove)
}

func (h *ExamHandler) create(c *fiber.Ctx) error {
	var payload dto.ExamCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	exam, err := h.service.Create(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam created", exam)
}

func (h *ExamHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	exam, err := h.service.Get(c.Context(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "exam retrieved", exam)
}

func (h *ExamHandler) listByCourse(c *fiber.Ctx) error {
	courseID, err := parseQueryUint(c, "course_id")
	if err != nil || courseID == 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "course_id is required", nil)
	}

	exams, err := h.service.ListByCourse(c.Context(), actorFromContext(c), courseID)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *ExamHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var payload dto.ExamUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	exam, err := h.service.Update(c.Context(), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *ExamHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := h.service.Delete(c.Context(), actorFromContext(c), id); err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "exam deleted", nil)
}
