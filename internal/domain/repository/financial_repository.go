package repository

import (
	"context"

	"github.com/turtacn/shieldgate/internal/domain/models"
)

// FinancialRepository reads verified pricing. Implementations run inside the tenant scope so
// the storage filter applies, and also filter by tenant id explicitly.
type FinancialRepository interface {
	// FindAvailableProduct returns at most one available product of tenantID whose
	// description or destination matches any of terms, or nil when none does.
	FindAvailableProduct(ctx context.Context, tenantID string, terms []string) (*models.FinancialRecord, error)
}
