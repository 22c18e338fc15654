package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ActivityLog is a write-once audit trail entry. Entries are never mutated
// after creation; a retention job prunes rows past the configured horizon
// using the created_at index.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	TenantID   string            `gorm:"size:64;not null;index" json:"tenant_id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_entity" json:"entity_id"`
	Changes    datatypes.JSONMap `gorm:"type:json" json:"changes"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Severity   string            `gorm:"size:16;not null;default:low" json:"severity"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}
