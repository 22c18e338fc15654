package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/audit"
	"github.com/edinmavric/lms-mern-sub002/internal/dto"
	"github.com/edinmavric/lms-mern-sub002/internal/models"
	"github.com/edinmavric/lms-mern-sub002/internal/repository"
	"github.com/edinmavric/lms-mern-sub002/pkg/apperr"
)

// GradeUpsertInput carries one attempt-1 ledger mutation.
type GradeUpsertInput struct {
	TenantID    string
	StudentID   uint
	CourseID    uint
	ProfessorID uint
	Value       float64
	Comment     string
	ChangedBy   uint
}

// GradeService owns the grade ledger. Every change to an existing value
// appends one history entry before the new value is applied; history rows are
// never edited or removed.
type GradeService interface {
	GradeLedger
	Upsert(ctx context.Context, actor Actor, payload dto.GradeUpsertRequest) (dto.GradeResponse, error)
	ListForStudent(ctx context.Context, actor Actor, studentID uint) ([]dto.GradeResponse, error)
}

type gradeService struct {
	grades    repository.GradeRepository
	tenants   repository.TenantRepository
	validator *validator.Validate
	recorder  *audit.Recorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradeService constructs the grade ledger service.
func NewGradeService(
	grades repository.GradeRepository,
	tenants repository.TenantRepository,
	validate *validator.Validate,
	recorder *audit.Recorder,
	logger zerolog.Logger,
) GradeService {
	return &gradeService{
		grades:    grades,
		tenants:   tenants,
		validator: validate,
		recorder:  recorder,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "grade_service").Logger(),
		now:       time.Now,
	}
}

// ValidateValue checks a grade value against the tenant's configured scale.
func (s *gradeService) ValidateValue(ctx context.Context, tenantID string, value float64) error {
	scale, err := s.tenants.GradeScale(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "tenant not found")
		}
		return err
	}

	if value < scale.Min || value > scale.Max {
		return apperr.Newf(apperr.InvalidArgument, "grade value must be between %g and %g", scale.Min, scale.Max)
	}

	return nil
}

// UpsertAttemptOne is the single ledger mutation primitive shared by exam
// grading and direct grade edits.
func (s *gradeService) UpsertAttemptOne(ctx context.Context, input GradeUpsertInput) (dto.GradeResponse, error) {
	if err := s.ValidateValue(ctx, input.TenantID, input.Value); err != nil {
		return dto.GradeResponse{}, err
	}

	comment := strings.TrimSpace(s.sanitizer.Sanitize(input.Comment))

	grade, err := s.grades.FindByAttempt(ctx, input.TenantID, input.StudentID, input.CourseID, 1)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradeResponse{}, err
		}
		return s.create(ctx, input, comment)
	}

	oldValue := grade.Value
	if oldValue != input.Value {
		history := models.GradeHistory{
			GradeID:   grade.ID,
			OldValue:  oldValue,
			NewValue:  input.Value,
			ChangedBy: input.ChangedBy,
			ChangedAt: s.now(),
		}
		if err := s.grades.AppendHistory(ctx, &history); err != nil {
			return dto.GradeResponse{}, err
		}
		grade.History = append(grade.History, history)
	}

	grade.Value = input.Value
	grade.Comment = comment
	grade.UpdatedBy = input.ChangedBy

	if err := s.grades.Update(ctx, &grade); err != nil {
		return dto.GradeResponse{}, err
	}

	if oldValue != input.Value {
		entityID := grade.ID
		s.recorder.Record(ctx, audit.Entry{
			TenantID:   grade.TenantID,
			ActorID:    input.ChangedBy,
			Action:     "grade.updated",
			EntityType: audit.KindGrade,
			EntityID:   &entityID,
			Changes: map[string]interface{}{
				"value": map[string]interface{}{"old": oldValue, "new": input.Value},
			},
			Severity: models.SeverityMedium,
		})
	}

	return dto.NewGradeResponse(grade), nil
}

func (s *gradeService) create(ctx context.Context, input GradeUpsertInput, comment string) (dto.GradeResponse, error) {
	grade := models.Grade{
		TenantID:    input.TenantID,
		StudentID:   input.StudentID,
		CourseID:    input.CourseID,
		Attempt:     1,
		ProfessorID: input.ProfessorID,
		Value:       input.Value,
		Comment:     comment,
		Date:        s.now(),
		CreatedBy:   input.ChangedBy,
	}

	if err := s.grades.Create(ctx, &grade); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.GradeResponse{}, apperr.New(apperr.Conflict, "grade already exists for this attempt")
		}
		return dto.GradeResponse{}, err
	}

	s.recorder.Created(ctx, audit.KindGrade, grade, nil)

	return dto.NewGradeResponse(grade), nil
}

// Upsert handles direct grade creation/edit outside the exam flow.
func (s *gradeService) Upsert(ctx context.Context, actor Actor, payload dto.GradeUpsertRequest) (dto.GradeResponse, error) {
	if actor.Role != RoleProfessor && !actor.IsAdmin() {
		return dto.GradeResponse{}, apperr.New(apperr.Forbidden, "only professors and admins may write grades")
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResponse{}, err
	}

	return s.UpsertAttemptOne(ctx, GradeUpsertInput{
		TenantID:    actor.TenantID,
		StudentID:   payload.StudentID,
		CourseID:    payload.CourseID,
		ProfessorID: actor.ID,
		Value:       payload.Value,
		Comment:     payload.Comment,
		ChangedBy:   actor.ID,
	})
}

func (s *gradeService) ListForStudent(ctx context.Context, actor Actor, studentID uint) ([]dto.GradeResponse, error) {
	if actor.Role == RoleStudent && actor.ID != studentID {
		return nil, apperr.New(apperr.Forbidden, "students may only view their own grades")
	}

	grades, err := s.grades.ListByStudent(ctx, actor.TenantID, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, dto.NewGradeResponse(grade))
	}

	return responses, nil
}
