package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/middleware"
	"github.com/edinmavric/lms-mern-sub002/internal/service"
	"github.com/edinmavric/lms-mern-sub002/internal/utils"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryUint(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func tenantFromContext(c *fiber.Ctx) string {
	if v := c.Locals("tenant_id"); v != nil {
		if tenant, ok := v.(string); ok {
			return strings.TrimSpace(tenant)
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:       userIDFromContext(c),
		Role:     userRoleFromContext(c),
		TenantID: tenantFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged server-side and surfaced as opaque 500s.
func respondError(c *fiber.Ctx, logger *zerolog.Logger, err error) error {
	if isValidationError(err) {
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	switch apperr.KindOf(err) {
	case apperr.InvalidArgument:
		return utils.Fail(c, fiber.StatusBadRequest, apperr.Reason(err), nil)
	case apperr.NotFound:
		return utils.Fail(c, fiber.StatusNotFound, apperr.Reason(err), nil)
	case apperr.Forbidden:
		return utils.Fail(c, fiber.StatusForbidden, apperr.Reason(err), nil)
	case apperr.Conflict:
		return utils.Fail(c, fiber.StatusConflict, apperr.Reason(err), nil)
	case apperr.InvalidState:
		return utils.Fail(c, fiber.StatusUnprocessableEntity, apperr.Reason(err), nil)
	default:
		logger.Error().Err(err).Msg("internal server error")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
	}
}
