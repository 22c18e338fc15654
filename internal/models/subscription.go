package models

import "time"

// Subscription status values. Graded is a transient label folded into the
// pass/fail decision inside the grading operation; only subscribed, passed and
// failed are ever observed between requests.
const (
	SubscriptionStatusSubscribed = "subscribed"
	SubscriptionStatusGraded     = "graded"
	SubscriptionStatusPassed     = "passed"
	SubscriptionStatusFailed     = "failed"
)

// ExamSubscription links a student to an exam and carries the grading outcome.
// Subscriptions are the only entity in this core that is physically deleted.
type ExamSubscription struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TenantID  string     `gorm:"size:64;not null;uniqueIndex:idx_sub_tenant_exam_student" json:"tenant_id"`
	ExamID    uint       `gorm:"not null;uniqueIndex:idx_sub_tenant_exam_student" json:"exam_id"`
	StudentID uint       `gorm:"not null;uniqueIndex:idx_sub_tenant_exam_student" json:"student_id"`
	Status    string     `gorm:"size:32;not null" json:"status"`
	Points    *float64   `json:"points"`
	Grade     *float64   `json:"grade"`
	GradedBy  *uint      `json:"graded_by"`
	GradedAt  *time.Time `json:"graded_at"`
	Comment   string     `gorm:"type:text" json:"comment"`
	CreatedBy uint       `json:"created_by"`
	UpdatedBy uint       `json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Exam      Exam       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam"`
}

// IsGraded reports whether the subscription has reached a terminal state.
func (s ExamSubscription) IsGraded() bool {
	return s.Status == SubscriptionStatusPassed || s.Status == SubscriptionStatusFailed
}
