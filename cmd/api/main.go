package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/edinmavric/lms-mern-sub002/internal/audit"
	"github.com/edinmavric/lms-mern-sub002/internal/config"
	"github.com/edinmavric/lms-mern-sub002/internal/database"
	"github.com/edinmavric/lms-mern-sub002/internal/handler"
	"github.com/edinmavric/lms-mern-sub002/internal/middleware"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/internal/repository"
	"github.com/edinmavric/lms-mern-sub002/internal/router"
	"github.com/edinmavric/lms-mern-sub002/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.Enrollment{},
		&models.Exam{},
		&models.ExamSubscription{},
		&models.Grade{},
		&models.GradeHistory{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	activityRepo := repository.NewActivityLogRepository(db)
	examRepo := repository.NewExamRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	tenantRepo := repository.NewTenantRepository(db, models.GradeScale{
		Min: cfg.DefaultGradeScale.Min,
		Max: cfg.DefaultGradeScale.Max,
	})

	recorderOpts := []audit.Option{}
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, audit broadcast disabled")
		} else {
			defer natsConn.Drain()
			recorderOpts = append(recorderOpts, audit.WithNATS(natsConn, cfg.AuditSubject))
		}
	}
	recorder := audit.NewRecorder(activityRepo, logger, recorderOpts...)

	gradeService := service.NewGradeService(gradeRepo, tenantRepo, validate, recorder, logger)
	examService := service.NewExamService(examRepo, subscriptionRepo, enrollmentRepo, validate, recorder, logger)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, examRepo, enrollmentRepo, gradeService, validate, recorder, logger)
	activityService := service.NewActivityService(activityRepo, redisClient, cfg.ActivityCacheTTL, logger)

	examHandler := handler.NewExamHandler(examService, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, logger)
	gradeHandler := handler.NewGradeHandler(gradeService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:         examHandler,
		SubscriptionHandler: subscriptionHandler,
		GradeHandler:        gradeHandler,
		ActivityHandler:     activityHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	go pruneActivityLogs(pruneCtx, activityRepo, cfg.AuditRetention, cfg.AuditPruneEvery, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// pruneActivityLogs drops audit entries older than the retention window on a
// fixed interval until ctx is cancelled.
func pruneActivityLogs(ctx context.Context, repo repository.ActivityLogRepository, retention, every time.Duration, logger zerolog.Logger) {
	if retention <= 0 || every <= 0 {
		return
	}

	pruneLogger := logger.With().Str("component", "activity_prune").Logger()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			removed, err := repo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				pruneLogger.Error().Err(err).Msg("failed to prune activity logs")
				continue
			}
			if removed > 0 {
				pruneLogger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("pruned activity logs")
			}
		}
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
