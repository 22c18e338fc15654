package models

import "time"

// Grade is the per-student-per-course-per-attempt ledger record. Exam grading
// is the sole writer of attempt-1 grades derived from exams; direct grade
// edits reuse the same upsert primitive.
type Grade struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    string         `gorm:"size:64;not null;uniqueIndex:idx_grade_tenant_student_course_attempt" json:"tenant_id"`
	StudentID   uint           `gorm:"not null;uniqueIndex:idx_grade_tenant_student_course_attempt" json:"student_id"`
	CourseID    uint           `gorm:"not null;uniqueIndex:idx_grade_tenant_student_course_attempt" json:"course_id"`
	Attempt     int            `gorm:"not null;uniqueIndex:idx_grade_tenant_student_course_attempt" json:"attempt"`
	ProfessorID uint           `gorm:"not null" json:"professor_id"`
	Value       float64        `gorm:"not null" json:"value"`
	Comment     string         `gorm:"type:text" json:"comment"`
	Date        time.Time      `json:"date"`
	CreatedBy   uint           `json:"created_by"`
	UpdatedBy   uint           `json:"updated_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	History     []GradeHistory `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"history"`
}

// GradeHistory records one change to a grade value. Rows are append-only and
// never updated or removed.
type GradeHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GradeID   uint      `gorm:"not null;index" json:"grade_id"`
	OldValue  float64   `gorm:"not null" json:"old_value"`
	NewValue  float64   `gorm:"not null" json:"new_value"`
	ChangedBy uint      `gorm:"not null" json:"changed_by"`
	ChangedAt time.Time `gorm:"not null" json:"changed_at"`
}
