package models

import "time"

// Tenant holds per-tenant settings. Every grade write is validated against the
// tenant's configured grade-scale bounds.
type Tenant struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	GradeScaleMin float64   `gorm:"not null;default:5" json:"grade_scale_min"`
	GradeScaleMax float64   `gorm:"not null;default:10" json:"grade_scale_max"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GradeScale is the inclusive range a grade value must fall within.
type GradeScale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
