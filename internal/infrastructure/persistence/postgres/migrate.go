package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/internal/domain/models"
)

// AutoMigrate creates or updates the tables owned by the service.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&models.Product{},
		&models.Sale{},
		&models.SecurityEvent{},
	)
}
