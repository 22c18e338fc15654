// Package audit implements the generic change-audit recorder. Any mutating
// service wraps its write with a Created/Updated/Deleted call; the recorder
// diffs snapshots, resolves the acting user from the record itself and emits
// an immutable ActivityLog entry through the injected sink. A sink failure is
// reported to the diagnostic log and dropped; it never affects the primary
// mutation.
package audit

import (
	"context"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// Entity kind labels used as the EntityType of emitted entries.
const (
	KindExam         = "exam"
	KindSubscription = "exam_subscription"
	KindGrade        = "grade"
)

// Meta describes how one entity kind is audited. The table below is the whole
// registry; there is no runtime lookup by type name.
type Meta struct {
	// Exclude lists field paths omitted from update diffs, on top of the
	// bookkeeping fields excluded for every kind.
	Exclude []string
}

var registry = map[string]Meta{
	KindExam:         {Exclude: []string{"deleted_at"}},
	KindSubscription: {Exclude: []string{"exam"}},
	KindGrade:        {Exclude: []string{"history"}},
}

// Bookkeeping fields are never part of a diff regardless of entity kind.
var alwaysExcluded = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
	"created_by": {},
	"updated_by": {},
	"tenant_id":  {},
}

// Entry is the type-erased payload handed to the recorder.
type Entry struct {
	TenantID   string
	ActorID    uint
	Action     string
	EntityType string
	EntityID   *uint
	Changes    map[string]interface{}
	Metadata   map[string]interface{}
	Severity   string
}

// Sink persists activity log rows. The gorm repository satisfies it directly.
type Sink interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}
