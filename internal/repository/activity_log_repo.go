package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// ActivityLogFilter narrows activity log queries. TenantID is mandatory;
// everything else is optional.
type ActivityLogFilter struct {
	TenantID   string
	Page       int
	PageSize   int
	ActorID    *uint
	Action     string
	EntityType string
	Severity   string
	From       *time.Time
	To         *time.Time
}

// ActivityCount is one bucket of the aggregated stats read model.
type ActivityCount struct {
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	Severity   string `json:"severity"`
	Count      int64  `json:"count"`
}

// ActivityLogRepository persists audit trail events.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
	ListByEntity(ctx context.Context, tenantID, entityType string, entityID uint) ([]models.ActivityLog, error)
	CountSince(ctx context.Context, tenantID string, since time.Time) ([]ActivityCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("tenant_id = ?", filter.TenantID)

	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}

	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}

	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *activityLogRepository) ListByEntity(ctx context.Context, tenantID, entityType string, entityID uint) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *activityLogRepository) CountSince(ctx context.Context, tenantID string, since time.Time) ([]ActivityCount, error) {
	var counts []ActivityCount
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("action, entity_type, severity, COUNT(*) AS count").
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Group("action, entity_type, severity").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *activityLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ActivityLog{})

	return result.RowsAffected, result.Error
}
