package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/repository"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// SaleRepoImpl implements SaleRepository interface using the relational store.
// Every query filters by tenant id and every returned row is checked against the validated
// tenant.
type SaleRepoImpl struct {
	scope  *TenantScope
	logger logger.Logger
}

var _ repository.SaleRepository = (*SaleRepoImpl)(nil)

// NewSaleRepository creates a new sale repository instance.
func NewSaleRepository(scope *TenantScope, log logger.Logger) *SaleRepoImpl {
	return &SaleRepoImpl{scope: scope, logger: log.WithComponent("sale_repo")}
}

// Create persists a new sale.
func (r *SaleRepoImpl) Create(ctx context.Context, sale *models.Sale) error {
	if err := tenancy.AssertOwned(ctx, sale); err != nil {
		r.logger.Error(ctx, "Refusing to store sale for foreign tenant", err)
		return err
	}
	startTime := time.Now()

	err := r.scope.Run(ctx, func(tx *gorm.DB) error {
		return tx.Create(sale).Error
	})
	if err != nil {
		r.logger.Error(ctx, "Failed to create sale", err, logger.String("sale_id", sale.ID))
		return mapDBErr(err, "sale", sale.ID)
	}

	r.logger.Info(ctx, "Sale created successfully",
		logger.String("sale_id", sale.ID),
		logger.String("tenant_id", sale.TenantID),
		logger.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)
	return nil
}

// FindByID retrieves one sale of tenantID.
func (r *SaleRepoImpl) FindByID(ctx context.Context, tenantID, id string) (*models.Sale, error) {
	var sale models.Sale
	err := r.scope.Run(ctx, func(tx *gorm.DB) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&sale).Error
	})
	if err != nil {
		mapped := mapDBErr(err, "sale", id)
		r.logger.Debug(ctx, "Sale lookup failed", logger.String("sale_id", id), logger.String("error", mapped.Error()))
		return nil, mapped
	}

	if err := tenancy.AssertOwned(ctx, &sale); err != nil {
		r.logger.Error(ctx, "Sale returned for foreign tenant", err, logger.String("sale_id", id))
		return nil, err
	}
	return &sale, nil
}

// List returns a page of tenantID's sales, newest first, and the total count.
func (r *SaleRepoImpl) List(ctx context.Context, tenantID string, filter repository.SaleFilter) ([]*models.Sale, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		sales []*models.Sale
		total int64
	)
	err := r.scope.Run(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&models.Sale{}).Where("tenant_id = ?", tenantID)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			p := likePattern(filter.Search)
			q = q.Where(
				tx.Where(`LOWER(customer_name) LIKE ? ESCAPE '\'`, p).
					Or(`LOWER(description) LIKE ? ESCAPE '\'`, p).
					Or(`LOWER(destination) LIKE ? ESCAPE '\'`, p),
			)
		}
		q = q.Session(&gorm.Session{})
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&sales).Error
	})
	if err != nil {
		r.logger.Error(ctx, "Failed to list sales", err, logger.String("tenant_id", tenantID))
		return nil, 0, mapDBErr(err, "sale", "")
	}

	if err := tenancy.AssertAll(ctx, sales); err != nil {
		r.logger.Error(ctx, "Sale listing contained foreign rows", err)
		return nil, 0, err
	}
	return sales, total, nil
}
