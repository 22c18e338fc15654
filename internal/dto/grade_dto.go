package dto

import (
	"time"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// GradeUpsertRequest captures a direct grade creation/edit outside the exam
// flow. It reuses the same attempt-1 history semantics as exam grading.
type GradeUpsertRequest struct {
	StudentID uint    `json:"student_id" validate:"required"`
	CourseID  uint    `json:"course_id" validate:"required"`
	Value     float64 `json:"value" validate:"required"`
	Comment   string  `json:"comment" validate:"omitempty,max=2000"`
}

// GradeHistoryResponse serializes one append-only history entry.
type GradeHistoryResponse struct {
	OldValue  float64   `json:"old_value"`
	NewValue  float64   `json:"new_value"`
	ChangedBy uint      `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// GradeResponse serializes a grade ledger record.
type GradeResponse struct {
	ID          uint                   `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	StudentID   uint                   `json:"student_id"`
	CourseID    uint                   `json:"course_id"`
	ProfessorID uint                   `json:"professor_id"`
	Value       float64                `json:"value"`
	Attempt     int                    `json:"attempt"`
	Comment     string                 `json:"comment,omitempty"`
	Date        time.Time              `json:"date"`
	History     []GradeHistoryResponse `json:"history"`
}

// NewGradeResponse converts a grade model into a DTO.
func NewGradeResponse(grade models.Grade) GradeResponse {
	history := make([]GradeHistoryResponse, 0, len(grade.History))
	for _, entry := range grade.History {
		history = append(history, GradeHistoryResponse{
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
		})
	}

	return GradeResponse{
		ID:          grade.ID,
		TenantID:    grade.TenantID,
		StudentID:   grade.StudentID,
		CourseID:    grade.CourseID,
		ProfessorID: grade.ProfessorID,
		Value:       grade.Value,
		Attempt:     grade.Attempt,
		Comment:     grade.Comment,
		Date:        grade.Date,
		History:     history,
	}
}
