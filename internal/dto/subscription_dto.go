package dto

import (
	"time"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// GradeSubscriptionRequest captures the payload for grading a subscription.
// Grade applies only when the student passed; failed attempts are always
// recorded as 5 regardless of input.
type GradeSubscriptionRequest struct {
	Points  float64  `json:"points" validate:"gte=0"`
	Grade   *float64 `json:"grade"`
	Comment string   `json:"comment" validate:"omitempty,max=2000"`
}

// SubscriptionResponse serializes an exam subscription for API clients.
type SubscriptionResponse struct {
	ID        uint       `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ExamID    uint       `json:"exam_id"`
	StudentID uint       `json:"student_id"`
	Status    string     `json:"status"`
	Points    *float64   `json:"points,omitempty"`
	Grade     *float64   `json:"grade,omitempty"`
	GradedBy  *uint      `json:"graded_by,omitempty"`
	GradedAt  *time.Time `json:"graded_at,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// GradingResultResponse pairs the graded subscription with the ledger record
// it upserted.
type GradingResultResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
	Grade        GradeResponse        `json:"grade"`
}

// NewSubscriptionResponse converts a subscription model into a DTO.
func NewSubscriptionResponse(subscription models.ExamSubscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:        subscription.ID,
		TenantID:  subscription.TenantID,
		ExamID:    subscription.ExamID,
		StudentID: subscription.StudentID,
		Status:    subscription.Status,
		Points:    subscription.Points,
		Grade:     subscription.Grade,
		GradedBy:  subscription.GradedBy,
		GradedAt:  subscription.GradedAt,
		Comment:   subscription.Comment,
		CreatedAt: subscription.CreatedAt,
		UpdatedAt: subscription.UpdatedAt,
	}
}
