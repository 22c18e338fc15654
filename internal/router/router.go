package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/edinmavric/lms-mern-sub002/internal/config"
	"github.com/edinmavric/lms-mern-sub002/internal/handler"
	"github.com/edinmavric/lms-mern-sub002/internal/middleware"
	"github.com/edinmavric/lms-mern-sub002/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler         *handler.ExamHandler
	SubscriptionHandler *handler.SubscriptionHandler
	GradeHandler        *handler.GradeHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ExamHandler != nil {
		exams := api.Group("/exams", jwtMiddleware)
		deps.ExamHandler.Register(exams)
	}

	if deps.SubscriptionHandler != nil {
		subscriptions := api.Group("/subscriptions", jwtMiddleware, middleware.RateLimit("subscriptions", 30, time.Minute))
		deps.SubscriptionHandler.Register(subscriptions)
	}

	if deps.GradeHandler != nil {
		grades := api.Group("/grades", jwtMiddleware)
		deps.GradeHandler.Register(grades)
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", jwtMiddleware, middleware.RequireRole("admin", "professor"))
		deps.ActivityHandler.Register(activity)
	}
}
