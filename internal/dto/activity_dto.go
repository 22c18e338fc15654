package dto

import (
	"time"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// ActivityListRequest defines filters for listing audit entries.
type ActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
	Severity   string
	From       *time.Time
	To         *time.Time
}

// ActivityResponse serializes one audit entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	TenantID   string                 `json:"tenant_id"`
	ActorID    uint                   `json:"actor_id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id,omitempty"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Severity   string                 `json:"severity"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps a paginated audit trail.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// ActivityStatsResponse aggregates counts within a trailing time window.
type ActivityStatsResponse struct {
	WindowHours  int              `json:"window_hours"`
	Total        int64            `json:"total"`
	ByAction     map[string]int64 `json:"by_action"`
	BySeverity   map[string]int64 `json:"by_severity"`
	ByEntityType map[string]int64 `json:"by_entity_type"`
	GeneratedAt  time.Time        `json:"generated_at"`
	CacheHit     bool             `json:"cache_hit"`
}

// NewActivityResponse converts an activity log model into a DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:         entry.ID,
		TenantID:   entry.TenantID,
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Changes:    entry.Changes,
		Metadata:   entry.Metadata,
		Severity:   entry.Severity,
		CreatedAt:  entry.CreatedAt,
	}
}
