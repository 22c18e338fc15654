package models

import (
	"time"

	"gorm.io/gorm"
)

// Exam type values.
const (
	// ExamTypePreliminary exams enroll every active student automatically.
	ExamTypePreliminary = "preliminary"
	// ExamTypeFinishing exams require explicit student registration before the deadline.
	ExamTypeFinishing = "finishing"
)

// Exam represents a scheduled examination for a course within a tenant.
type Exam struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	TenantID             string         `gorm:"size:64;not null;index" json:"tenant_id"`
	CourseID             uint           `gorm:"not null;index" json:"course_id"`
	ProfessorID          uint           `gorm:"not null" json:"professor_id"`
	Title                string         `gorm:"size:255;not null" json:"title"`
	Date                 time.Time      `gorm:"not null" json:"date"`
	MaxPoints            float64        `gorm:"not null" json:"max_points"`
	PassingPoints        float64        `gorm:"not null" json:"passing_points"`
	Type                 string         `gorm:"size:32;not null" json:"type"`
	SubscriptionDeadline *time.Time     `json:"subscription_deadline"`
	IsActive             bool           `gorm:"default:true" json:"is_active"`
	CreatedBy            uint           `json:"created_by"`
	UpdatedBy            uint           `json:"updated_by"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// IsPreliminary reports whether subscriptions are fanned out automatically.
func (e Exam) IsPreliminary() bool {
	return e.Type == ExamTypePreliminary
}

// DeadlinePassed reports whether the subscription window has closed.
func (e Exam) DeadlinePassed(reference time.Time) bool {
	return e.SubscriptionDeadline != nil && reference.After(*e.SubscriptionDeadline)
}
