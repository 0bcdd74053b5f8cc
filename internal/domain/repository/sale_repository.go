package repository

import (
	"context"

	"github.com/turtacn/shieldgate/internal/domain/models"
)

// SaleFilter narrows a sale listing.
type SaleFilter struct {
	// Search matches customer name, description or destination. It is screened before use.
	Search string
	Status models.SaleStatus
	Limit  int
	Offset int
}

// SaleRepository defines the interface for interacting with sale storage.
type SaleRepository interface {
	// Create persists a new sale.
	Create(ctx context.Context, sale *models.Sale) error

	// FindByID retrieves one sale of tenantID. A sale of another tenant is reported as not
	// found by the storage filter.
	FindByID(ctx context.Context, tenantID, id string) (*models.Sale, error)

	// List returns a page of tenantID's sales and the total count.
	List(ctx context.Context, tenantID string, filter SaleFilter) ([]*models.Sale, int64, error)
}
