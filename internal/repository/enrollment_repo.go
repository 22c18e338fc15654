package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// EnrollmentDirectory supplies the students actively enrolled in a course.
// The exam fan-out and subscription checks depend only on this interface.
type EnrollmentDirectory interface {
	ActiveStudentIDs(ctx context.Context, tenantID string, courseID uint) ([]uint, error)
	IsActivelyEnrolled(ctx context.Context, tenantID string, studentID, courseID uint) (bool, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs a gorm-backed enrollment directory.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentDirectory {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ActiveStudentIDs(ctx context.Context, tenantID string, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("tenant_id = ? AND course_id = ? AND status = ?", tenantID, courseID, models.EnrollmentStatusActive).
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *enrollmentRepository) IsActivelyEnrolled(ctx context.Context, tenantID string, studentID, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("tenant_id = ? AND student_id = ? AND course_id = ? AND status = ?",
			tenantID, studentID, courseID, models.EnrollmentStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
