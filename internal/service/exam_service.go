package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/audit"
	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/internal/observability"
	"github.com/edinmavric/lms-mern-sub002/internal/repository"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

// ExamService manages the exam lifecycle, including subscription fan-out for
// preliminary exams.
type ExamService interface {
	Create(ctx context.Context, actor Actor, payload dto.ExamCreateRequest) (dto.ExamResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Get(ctx context.Context, actor Actor, id uint) (dto.ExamResponse, error)
	ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]dto.ExamResponse, error)
}

type examService struct {
	exams         repository.ExamRepository
	subscriptions repository.SubscriptionRepository
	enrollments   repository.EnrollmentDirectory
	validator     *validator.Validate
	recorder      *audit.Recorder
	logger        zerolog.Logger
	now           func() time.Time
}

// NewExamService constructs the exam lifecycle service.
func NewExamService(
	exams repository.ExamRepository,
	subscriptions repository.SubscriptionRepository,
	enrollments repository.EnrollmentDirectory,
	validate *validator.Validate,
	recorder *audit.Recorder,
	logger zerolog.Logger,
) ExamService {
	return &examService{
		exams:         exams,
		subscriptions: subscriptions,
		enrollments:   enrollments,
		validator:     validate,
		recorder:      recorder,
		logger:        logger.With().Str("component", "exam_service").Logger(),
		now:           time.Now,
	}
}

func (s *examService) Create(ctx context.Context, actor Actor, payload dto.ExamCreateRequest) (dto.ExamResponse, error) {
	tracer := otel.Tracer("github.com/edinmavric/lms-mern-sub002/internal/service/exam")
	ctx, span := tracer.Start(ctx, "exam.create")
	span.SetAttributes(
		attribute.Int64("exam.course_id", int64(payload.CourseID)),
		attribute.String("exam.type", payload.Type),
	)
	defer span.End()

	if actor.Role != RoleProfessor && !actor.IsAdmin() {
		return dto.ExamResponse{}, apperr.New(apperr.Forbidden, "only professors and admins may create exams")
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ExamResponse{}, err
	}

	date, err := time.Parse(time.RFC3339, payload.Date)
	if err != nil {
		return dto.ExamResponse{}, apperr.New(apperr.InvalidArgument, "invalid exam date")
	}

	var deadline *time.Time
	if payload.SubscriptionDeadline != nil {
		parsed, err := time.Parse(time.RFC3339, *payload.SubscriptionDeadline)
		if err != nil {
			return dto.ExamResponse{}, apperr.New(apperr.InvalidArgument, "invalid subscription deadline")
		}
		deadline = &parsed
	}

	if err := validateExamRules(payload.Type, payload.MaxPoints, payload.PassingPoints, date, deadline); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invariant_violated")
		return dto.ExamResponse{}, err
	}

	professorID := actor.ID
	if actor.IsAdmin() && payload.ProfessorID > 0 {
		professorID = payload.ProfessorID
	}

	exam := models.Exam{
		TenantID:             actor.TenantID,
		CourseID:             payload.CourseID,
		ProfessorID:          professorID,
		Title:                payload.Title,
		Date:                 date,
		MaxPoints:            payload.MaxPoints,
		PassingPoints:        payload.PassingPoints,
		Type:                 payload.Type,
		SubscriptionDeadline: deadline,
		IsActive:             true,
		CreatedBy:            actor.ID,
	}

	if err := s.exams.Create(ctx, &exam); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exam_create_failed")
		return dto.ExamResponse{}, err
	}

	// Fan-out runs after the exam write and is not atomic with it; a failure
	// here leaves the persisted exam without subscriptions and surfaces the
	// error to the caller.
	if exam.IsPreliminary() {
		created, err := s.fanOut(ctx, actor, exam, "create")
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fanout_failed")
			return dto.ExamResponse{}, err
		}
		span.SetAttributes(attribute.Int("exam.fanout_created", created))
	}

	s.recorder.Created(ctx, audit.KindExam, exam, nil)

	return dto.NewExamResponse(exam), nil
}

func (s *examService) Update(ctx context.Context, actor Actor, id uint, payload dto.ExamUpdateRequest) (dto.ExamResponse, error) {
	tracer := otel.Tracer("github.com/edinmavric/lms-mern-sub002/internal/service/exam")
	ctx, span := tracer.Start(ctx, "exam.update")
	span.SetAttributes(attribute.Int64("exam.id", int64(id)))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.ExamResponse{}, err
	}

	exam, err := s.exams.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return dto.ExamResponse{}, err
	}

	if exam.ProfessorID != actor.ID && !actor.IsAdmin() {
		return dto.ExamResponse{}, apperr.New(apperr.Forbidden, "only the exam's professor or an admin may update it")
	}

	before := exam

	if payload.Title != nil {
		exam.Title = *payload.Title
	}
	if payload.Date != nil {
		date, err := time.Parse(time.RFC3339, *payload.Date)
		if err != nil {
			return dto.ExamResponse{}, apperr.New(apperr.InvalidArgument, "invalid exam date")
		}
		exam.Date = date
	}
	if payload.MaxPoints != nil {
		exam.MaxPoints = *payload.MaxPoints
	}
	if payload.PassingPoints != nil {
		exam.PassingPoints = *payload.PassingPoints
	}
	if payload.Type != nil {
		exam.Type = *payload.Type
	}
	if payload.SubscriptionDeadline != nil {
		deadline, err := time.Parse(time.RFC3339, *payload.SubscriptionDeadline)
		if err != nil {
			return dto.ExamResponse{}, apperr.New(apperr.InvalidArgument, "invalid subscription deadline")
		}
		exam.SubscriptionDeadline = &deadline
	}
	if payload.IsActive != nil {
		exam.IsActive = *payload.IsActive
	}

	if err := validateExamRules(exam.Type, exam.MaxPoints, exam.PassingPoints, exam.Date, exam.SubscriptionDeadline); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invariant_violated")
		return dto.ExamResponse{}, err
	}

	exam.UpdatedBy = actor.ID

	if err := s.exams.Update(ctx, &exam); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exam_update_failed")
		return dto.ExamResponse{}, err
	}

	// Flipping to preliminary triggers a delta fan-out: missing subscriptions
	// are created, existing ones untouched. Flipping away removes nothing, so
	// graded work survives the change.
	if !before.IsPreliminary() && exam.IsPreliminary() {
		created, err := s.fanOut(ctx, actor, exam, "type_flip")
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fanout_failed")
			return dto.ExamResponse{}, err
		}
		span.SetAttributes(attribute.Int("exam.fanout_created", created))
	}

	s.recorder.Updated(ctx, audit.KindExam, before, exam)

	return dto.NewExamResponse(exam), nil
}

func (s *examService) Delete(ctx context.Context, actor Actor, id uint) error {
	exam, err := s.exams.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "exam not found")
		}
		return err
	}

	if exam.ProfessorID != actor.ID && !actor.IsAdmin() {
		return apperr.New(apperr.Forbidden, "only the exam's professor or an admin may delete it")
	}

	exam.UpdatedBy = actor.ID
	if err := s.exams.Delete(ctx, &exam); err != nil {
		return err
	}

	s.recorder.Deleted(ctx, audit.KindExam, exam)

	return nil
}

func (s *examService) Get(ctx context.Context, actor Actor, id uint) (dto.ExamResponse, error) {
	exam, err := s.exams.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ExamResponse{}, apperr.New(apperr.NotFound, "exam not found")
		}
		return dto.ExamResponse{}, err
	}

	return dto.NewExamResponse(exam), nil
}

func (s *examService) ListByCourse(ctx context.Context, actor Actor, courseID uint) ([]dto.ExamResponse, error) {
	exams, err := s.exams.ListByCourse(ctx, actor.TenantID, courseID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ExamResponse, 0, len(exams))
	for _, exam := range exams {
		responses = append(responses, dto.NewExamResponse(exam))
	}

	return responses, nil
}

// fanOut creates one subscribed record per actively enrolled student that has
// no subscription for this exam yet. It is idempotent and never deletes.
func (s *examService) fanOut(ctx context.Context, actor Actor, exam models.Exam, trigger string) (int, error) {
	studentIDs, err := s.enrollments.ActiveStudentIDs(ctx, exam.TenantID, exam.CourseID)
	if err != nil {
		return 0, err
	}

	existing, err := s.subscriptions.SubscribedStudentIDs(ctx, exam.TenantID, exam.ID)
	if err != nil {
		return 0, err
	}
	seen := make(map[uint]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	subscriptions := make([]models.ExamSubscription, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		if _, ok := seen[studentID]; ok {
			continue
		}
		subscriptions = append(subscriptions, models.ExamSubscription{
			TenantID:  exam.TenantID,
			ExamID:    exam.ID,
			StudentID: studentID,
			Status:    models.SubscriptionStatusSubscribed,
			CreatedBy: actor.ID,
		})
	}

	if err := s.subscriptions.CreateBatch(ctx, subscriptions); err != nil {
		return 0, err
	}

	for _, subscription := range subscriptions {
		s.recorder.Created(ctx, audit.KindSubscription, subscription, map[string]interface{}{
			"trigger": trigger,
		})
	}

	observability.FanoutSubscriptions().WithLabelValues(trigger).Add(float64(len(subscriptions)))
	s.logger.Info().
		Uint("exam_id", exam.ID).
		Int("created", len(subscriptions)).
		Str("trigger", trigger).
		Msg("subscription fan-out completed")

	return len(subscriptions), nil
}

func validateExamRules(examType string, maxPoints, passingPoints float64, date time.Time, deadline *time.Time) error {
	if passingPoints > maxPoints {
		return apperr.New(apperr.InvalidArgument, "passing points must not exceed max points")
	}
	if examType == models.ExamTypeFinishing {
		if deadline == nil {
			return apperr.New(apperr.InvalidArgument, "finishing exams require a subscription deadline")
		}
		if deadline.After(date) {
			return apperr.New(apperr.InvalidArgument, "subscription deadline must not be after the exam date")
		}
	}
	return nil
}
