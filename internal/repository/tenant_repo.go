package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/edinmavric/lms-mern-sub002/internal/models"
)

// TenantRepository exposes per-tenant settings.
type TenantRepository interface {
	GradeScale(ctx context.Context, tenantID string) (models.GradeScale, error)
}

type tenantRepository struct {
	db       *gorm.DB
	fallback models.GradeScale
}

// NewTenantRepository constructs the tenant settings repository. Tenants
// without explicit grade bounds use the fallback scale.
func NewTenantRepository(db *gorm.DB, fallback models.GradeScale) TenantRepository {
	return &tenantRepository{db: db, fallback: fallback}
}

func (r *tenantRepository) GradeScale(ctx context.Context, tenantID string) (models.GradeScale, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", tenantID).Error; err != nil {
		return models.GradeScale{}, err
	}

	if tenant.GradeScaleMin == 0 && tenant.GradeScaleMax == 0 {
		return r.fallback, nil
	}

	return models.GradeScale{Min: tenant.GradeScaleMin, Max: tenant.GradeScaleMax}, nil
}
