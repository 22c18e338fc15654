package dto

import (
	"time"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// ExamCreateRequest captures the payload for scheduling an exam.
type ExamCreateRequest struct {
	CourseID             uint    `json:"course_id" validate:"required"`
	ProfessorID          uint    `json:"professor_id"`
	Title                string  `json:"title" validate:"required,min=3"`
	Date                 string  `json:"date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MaxPoints            float64 `json:"max_points" validate:"required,gt=0"`
	PassingPoints        float64 `json:"passing_points" validate:"gte=0"`
	Type                 string  `json:"type" validate:"required,oneof=preliminary finishing"`
	SubscriptionDeadline *string `json:"subscription_deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ExamUpdateRequest allows patching exam fields. Tenant and course are
// deliberately absent; they are immutable after creation.
type ExamUpdateRequest struct {
	Title                *string  `json:"title" validate:"omitempty,min=3"`
	Date                 *string  `json:"date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MaxPoints            *float64 `json:"max_points" validate:"omitempty,gt=0"`
	PassingPoints        *float64 `json:"passing_points" validate:"omitempty,gte=0"`
	Type                 *string  `json:"type" validate:"omitempty,oneof=preliminary finishing"`
	SubscriptionDeadline *string  `json:"subscription_deadline" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	IsActive             *bool    `json:"is_active"`
}

// ExamResponse serializes exam data for API clients.
type ExamResponse struct {
	ID                   uint       `json:"id"`
	TenantID             string     `json:"tenant_id"`
	CourseID             uint       `json:"course_id"`
	ProfessorID          uint       `json:"professor_id"`
	Title                string     `json:"title"`
	Date                 time.Time  `json:"date"`
	MaxPoints            float64    `json:"max_points"`
	PassingPoints        float64    `json:"passing_points"`
	Type                 string     `json:"type"`
	SubscriptionDeadline *time.Time `json:"subscription_deadline,omitempty"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewExamResponse converts an exam model into a DTO.
func NewExamResponse(exam models.Exam) ExamResponse {
	return ExamResponse{
		ID:                   exam.ID,
		TenantID:             exam.TenantID,
		CourseID:             exam.CourseID,
		ProfessorID:          exam.ProfessorID,
		Title:                exam.Title,
		Date:                 exam.Date,
		MaxPoints:            exam.MaxPoints,
		PassingPoints:        exam.PassingPoints,
		Type:                 exam.Type,
		SubscriptionDeadline: exam.SubscriptionDeadline,
		IsActive:             exam.IsActive,
		CreatedAt:            exam.CreatedAt,
		UpdatedAt:            exam.UpdatedAt,
	}
}
