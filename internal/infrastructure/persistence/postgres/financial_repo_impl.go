package postgres

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/repository"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/logger"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive contains pattern for term.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// FinancialRepoImpl implements FinancialRepository over the products table.
type FinancialRepoImpl struct {
	scope  *TenantScope
	logger logger.Logger
}

var _ repository.FinancialRepository = (*FinancialRepoImpl)(nil)

// NewFinancialRepository creates a new financial repository instance.
func NewFinancialRepository(scope *TenantScope, log logger.Logger) *FinancialRepoImpl {
	return &FinancialRepoImpl{scope: scope, logger: log.WithComponent("financial_repo")}
}

// FindAvailableProduct returns the first available product of tenantID whose description or
// destination contains any of terms. No terms means no lookup.
func (r *FinancialRepoImpl) FindAvailableProduct(ctx context.Context, tenantID string, terms []string) (*models.FinancialRecord, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var product models.Product
	found := false
	err := r.scope.Run(ctx, func(tx *gorm.DB) error {
		match := tx.Where("1 = 0")
		for _, term := range terms {
			p := likePattern(term)
			match = match.
				Or(`LOWER(description) LIKE ? ESCAPE '\'`, p).
				Or(`LOWER(destination) LIKE ? ESCAPE '\'`, p)
		}
		err := tx.
			Where("tenant_id = ? AND available = ?", tenantID, true).
			Where(match).
			Order("created_at DESC").
			Take(&product).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		r.logger.Error(ctx, "Failed to look up financial record", err, logger.String("tenant_id", tenantID))
		return nil, mapDBErr(err, "product", "")
	}
	if !found {
		r.logger.Debug(ctx, "No financial record matched", logger.Int("terms", len(terms)))
		return nil, nil
	}

	if err := tenancy.AssertOwned(ctx, &product); err != nil {
		r.logger.Error(ctx, "Product returned for foreign tenant", err,
			logger.String("product_id", product.ID),
		)
		return nil, err
	}
	return models.NewFinancialRecord(&product), nil
}

// SaveProduct stores a product of the validated tenant. It backs catalog seeding.
func (r *FinancialRepoImpl) SaveProduct(ctx context.Context, p *models.Product) error {
	if err := tenancy.AssertOwned(ctx, p); err != nil {
		return err
	}
	err := r.scope.Run(ctx, func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
	return mapDBErr(err, "product", p.ID)
}
