package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// ExamRepository provides persistence helpers for exams.
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, tenantID string, id uint) (models.Exam, error)
	ListByCourse(ctx context.Context, tenantID string, courseID uint) ([]models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, exam *models.Exam) error
}

type examRepository struct {
	db *gorm.DB
}

// NewExamRepository constructs the exam repository.
func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) Create(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepository) GetByID(ctx context.Context, tenantID string, id uint) (models.Exam, error) {
	var exam models.Exam
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&exam, id).Error; err != nil {
		return models.Exam{}, err
	}

	return exam, nil
}

func (r *examRepository) ListByCourse(ctx context.Context, tenantID string, courseID uint) ([]models.Exam, error) {
	var exams []models.Exam
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND course_id = ?", tenantID, courseID).
		Order("date ASC").
		Find(&exams).Error
	if err != nil {
		return nil, err
	}

	return exams, nil
}

func (r *examRepository) Update(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Save(exam).Error
}

func (r *examRepository) Delete(ctx context.Context, exam *models.Exam) error {
	return r.db.WithContext(ctx).Delete(exam).Error
}
