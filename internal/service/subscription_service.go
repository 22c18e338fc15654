package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/audit"
	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/internal/repository"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

// Grades passed exams default to the lowest passing grade; failed attempts
// always record 5.
const (
	defaultPassingGrade = 6.0
	lowestPassingGrade  = 6.0
	highestGrade        = 10.0
	failingGrade        = 5.0
)

// GradeLedger is the slice of the grade service the subscription state
// machine depends on.
type GradeLedger interface {
	ValidateValue(ctx context.Context, tenantID string, value float64) error
	UpsertAttemptOne(ctx context.Context, input GradeUpsertInput) (dto.GradeResponse, error)
}

// SubscriptionService owns the exam subscription lifecycle:
// subscribed -> passed | failed, with registration and withdrawal rules.
type SubscriptionService interface {
	Subscribe(ctx context.Context, actor Actor, examID uint) (dto.SubscriptionResponse, error)
	Grade(ctx context.Context, actor Actor, id uint, payload dto.GradeSubscriptionRequest) (dto.GradingResultResponse, error)
	Unsubscribe(ctx context.Context, actor Actor, id uint) error
	ListByExam(ctx context.Context, actor Actor, examID uint) ([]dto.SubscriptionResponse, error)
	ListOwn(ctx context.Context, actor Actor) ([]dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	subscriptions repository.SubscriptionRepository
	exams         repository.ExamRepository
	enrollments   repository.EnrollmentDirectory
	ledger        GradeLedger
	validator     *validator.Validate
	recorder      *audit.Recorder
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	now           func() time.Time
}

// NewSubscriptionService constructs the subscription state machine.
func NewSubscriptionService(
	subscriptions repository.SubscriptionRepository,
	exams repository.ExamRepository,
	enrollments repository.EnrollmentDirectory,
	ledger GradeLedger,
	validate *validator.Validate,
	recorder *audit.Recorder,
	logger zerolog.Logger,
) SubscriptionService {
	return &subscriptionService{
		subscriptions: subscriptions,
		exams:         exams,
		enrollments:   enrollments,
		ledger:        ledger,
		validator:     validate,
		recorder:      recorder,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "subscription_service").Logger(),
		now:           time.Now,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, actor Actor, examID uint) (dto.SubscriptionResponse, error) {
	if actor.Role != RoleStudent {
		return dto.SubscriptionResponse{}, apperr.New(apperr.Forbidden, "only students may subscribe to exams")
	}

	exam, err := s.exams.GetByID(ctx, actor.TenantID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubscriptionResponse{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return dto.SubscriptionResponse{}, err
	}

	// Preliminary exams are fan-out only.
	if exam.Type != models.ExamTypeFinishing {
		return dto.SubscriptionResponse{}, apperr.New(apperr.InvalidState, "only finishing exams accept explicit subscription")
	}

	if exam.DeadlinePassed(s.now()) {
		return dto.SubscriptionResponse{}, apperr.New(apperr.InvalidState, "subscription deadline has passed")
	}

	enrolled, err := s.enrollments.IsActivelyEnrolled(ctx, actor.TenantID, actor.ID, exam.CourseID)
	if err != nil {
		return dto.SubscriptionResponse{}, err
	}
	if !enrolled {
		return dto.SubscriptionResponse{}, apperr.New(apperr.Forbidden, "student is not actively enrolled in the exam's course")
	}

	exists, err := s.subscriptions.Exists(ctx, actor.TenantID, exam.ID, actor.ID)
	if err != nil {
		return dto.SubscriptionResponse{}, err
	}
	if exists {
		return dto.SubscriptionResponse{}, apperr.New(apperr.Conflict, "subscription already exists for this exam")
	}

	subscription := models.ExamSubscription{
		TenantID:  actor.TenantID,
		ExamID:    exam.ID,
		StudentID: actor.ID,
		Status:    models.SubscriptionStatusSubscribed,
		CreatedBy: actor.ID,
	}

	if err := s.subscriptions.Create(ctx, &subscription); err != nil {
		// Concurrent registrations race on the unique index; the loser
		// surfaces as a conflict rather than overwriting.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SubscriptionResponse{}, apperr.New(apperr.Conflict, "subscription already exists for this exam")
		}
		return dto.SubscriptionResponse{}, err
	}

	s.recorder.Created(ctx, audit.KindSubscription, subscription, nil)

	return dto.NewSubscriptionResponse(subscription), nil
}

func (s *subscriptionService) Grade(ctx context.Context, actor Actor, id uint, payload dto.GradeSubscriptionRequest) (dto.GradingResultResponse, error) {
	tracer := otel.Tracer("github.com/edinmavric/lms-mern-sub002/internal/service/subscription")
	ctx, span := tracer.Start(ctx, "subscription.grade")
	span.SetAttributes(
		attribute.Int64("grading.subscription_id", int64(id)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingResultResponse{}, err
	}

	subscription, err := s.subscriptions.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingResultResponse{}, apperr.New(apperr.NotFound, "subscription not found")
		}
		return dto.GradingResultResponse{}, err
	}

	exam := subscription.Exam
	if exam.ProfessorID != actor.ID && !actor.IsAdmin() {
		return dto.GradingResultResponse{}, apperr.New(apperr.Forbidden, "only the course's professor or an admin may grade")
	}

	// Terminal states are reached exactly once; re-grading is not an
	// operation in this core.
	if subscription.Status != models.SubscriptionStatusSubscribed {
		return dto.GradingResultResponse{}, apperr.New(apperr.InvalidState, "subscription has already been graded")
	}

	if payload.Points < 0 || payload.Points > exam.MaxPoints {
		return dto.GradingResultResponse{}, apperr.Newf(apperr.InvalidArgument, "points must be between 0 and %g", exam.MaxPoints)
	}

	passed := payload.Points >= exam.PassingPoints

	finalGrade := failingGrade
	if passed {
		finalGrade = defaultPassingGrade
		if payload.Grade != nil {
			finalGrade = *payload.Grade
		}
		if finalGrade < lowestPassingGrade || finalGrade > highestGrade {
			return dto.GradingResultResponse{}, apperr.New(apperr.InvalidArgument, "passing grade must be between 6 and 10")
		}
	}

	// A grade outside the tenant's scale would poison the ledger, so the
	// bounds are checked before either write happens.
	if err := s.ledger.ValidateValue(ctx, actor.TenantID, finalGrade); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grade_out_of_scale")
		return dto.GradingResultResponse{}, err
	}

	status := models.SubscriptionStatusFailed
	if passed {
		status = models.SubscriptionStatusPassed
	}

	points := payload.Points
	grade := finalGrade
	gradedAt := s.now()
	gradedBy := actor.ID
	comment := strings.TrimSpace(s.sanitizer.Sanitize(payload.Comment))

	subscription.Status = status
	subscription.Points = &points
	subscription.Grade = &grade
	subscription.GradedBy = &gradedBy
	subscription.GradedAt = &gradedAt
	subscription.Comment = comment
	subscription.UpdatedBy = actor.ID

	if err := s.subscriptions.Update(ctx, &subscription); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscription_update_failed")
		return dto.GradingResultResponse{}, err
	}

	// The ledger upsert follows the subscription write and is not atomic
	// with it; a failure here leaves the subscription graded and surfaces
	// the error.
	ledgerGrade, err := s.ledger.UpsertAttemptOne(ctx, GradeUpsertInput{
		TenantID:    actor.TenantID,
		StudentID:   subscription.StudentID,
		CourseID:    exam.CourseID,
		ProfessorID: exam.ProfessorID,
		Value:       finalGrade,
		Comment:     comment,
		ChangedBy:   actor.ID,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Uint("subscription_id", subscription.ID).
			Msg("grade ledger upsert failed after subscription update")
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger_upsert_failed")
		return dto.GradingResultResponse{}, err
	}

	entityID := subscription.ID
	s.recorder.Record(ctx, audit.Entry{
		TenantID:   actor.TenantID,
		ActorID:    actor.ID,
		Action:     "exam_subscription.graded",
		EntityType: audit.KindSubscription,
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"exam_id":    exam.ID,
			"student_id": subscription.StudentID,
			"points":     points,
			"grade":      grade,
			"status":     status,
		},
		Severity: models.SeverityMedium,
	})

	span.SetAttributes(
		attribute.Float64("grading.points", points),
		attribute.String("grading.status", status),
	)

	return dto.GradingResultResponse{
		Subscription: dto.NewSubscriptionResponse(subscription),
		Grade:        ledgerGrade,
	}, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, actor Actor, id uint) error {
	subscription, err := s.subscriptions.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "subscription not found")
		}
		return err
	}

	if subscription.StudentID != actor.ID {
		return apperr.New(apperr.Forbidden, "only the subscribed student may unsubscribe")
	}

	if subscription.Status != models.SubscriptionStatusSubscribed {
		return apperr.New(apperr.InvalidState, "graded subscriptions cannot be withdrawn")
	}

	if subscription.Exam.DeadlinePassed(s.now()) {
		return apperr.New(apperr.InvalidState, "subscription deadline has passed")
	}

	subscription.UpdatedBy = actor.ID
	if err := s.subscriptions.Delete(ctx, &subscription); err != nil {
		return err
	}

	s.recorder.Deleted(ctx, audit.KindSubscription, subscription)

	return nil
}

func (s *subscriptionService) ListByExam(ctx context.Context, actor Actor, examID uint) ([]dto.SubscriptionResponse, error) {
	exam, err := s.exams.GetByID(ctx, actor.TenantID, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "exam not found")
		}
		return nil, err
	}

	if exam.ProfessorID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "only the course's professor or an admin may list subscriptions")
	}

	subscriptions, err := s.subscriptions.ListByExam(ctx, actor.TenantID, examID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubscriptionResponse, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		responses = append(responses, dto.NewSubscriptionResponse(subscription))
	}

	return responses, nil
}

func (s *subscriptionService) ListOwn(ctx context.Context, actor Actor) ([]dto.SubscriptionResponse, error) {
	subscriptions, err := s.subscriptions.ListByStudent(ctx, actor.TenantID, actor.ID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubscriptionResponse, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		responses = append(responses, dto.NewSubscriptionResponse(subscription))
	}

	return responses, nil
}
