package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// GradeRepository provides persistence helpers for the grade ledger.
type GradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	FindByAttempt(ctx context.Context, tenantID string, studentID, courseID uint, attempt int) (models.Grade, error)
	ListByStudent(ctx context.Context, tenantID string, studentID uint) ([]models.Grade, error)
	Update(ctx context.Context, grade *models.Grade) error
	AppendHistory(ctx context.Context, history *models.GradeHistory) error
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs the grade ledger repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *gradeRepository) FindByAttempt(ctx context.Context, tenantID string, studentID, courseID uint, attempt int) (models.Grade, error) {
	var grade models.Grade
	err := r.db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("changed_at ASC")
		}).
		Where("tenant_id = ? AND student_id = ? AND course_id = ? AND attempt = ?", tenantID, studentID, courseID, attempt).
		First(&grade).Error
	if err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) ListByStudent(ctx context.Context, tenantID string, studentID uint) ([]models.Grade, error) {
	var grades []models.Grade
	err := r.db.WithContext(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("changed_at ASC")
		}).
		Where("tenant_id = ? AND student_id = ?", tenantID, studentID).
		Order("course_id ASC, attempt ASC").
		Find(&grades).Error
	if err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepository) AppendHistory(ctx context.Context, history *models.GradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}
