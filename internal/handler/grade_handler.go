package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/middleware"
	"github.com/edinmavric/lms-mern-sub002/internal/service"
	"github.com/edinmavric/lms-mern-sub002/internal/utils"
)

// GradeHandler manages grade ledger endpoints.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.listForStudent, middleware.AuthOptions{RequireUser: true}))
	router.Put("", middleware.WithAuth(h.upsert, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
}

func (h *GradeHandler) upsert(c *fiber.Ctx) error {
	var payload dto.GradeUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid request body", nil)
	}

	grade, err := h.service.Upsert(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "grade recorded", grade)
}

func (h *GradeHandler) listForStudent(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	studentID, err := parseQueryUint(c, "student_id")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid student_id", nil)
	}
	if studentID == 0 {
		studentID = actor.ID
	}

	grades, err := h.service.ListForStudent(c.Context(), actor, studentID)
	if err != nil {
		return respondError(c, requestLogger(h.logger, c), err)
	}

	return utils.SendSuccess(c, "grades retrieved", grades)
}
