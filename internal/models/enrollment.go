package models

import "time"

// Enrollment status values.
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusDropped   = "dropped"
)

// Enrollment captures a student's registration to a course. The exam fan-out
// and subscription checks consume only active enrollments.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  string    `gorm:"size:64;not null;index:idx_enrollment_course" json:"tenant_id"`
	StudentID uint      `gorm:"not null" json:"student_id"`
	CourseID  uint      `gorm:"not null;index:idx_enrollment_course" json:"course_id"`
	Status    string    `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
