// Package audit implements the AuditService interface over GORM, Kafka and the service log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/errors"
)

// GormAuditService provides a GORM-backed implementation of the AuditService.
// It stores audit events in the security_events table and never updates them.
type GormAuditService struct {
	db *gorm.DB
}

var _ service.AuditService = (*GormAuditService)(nil)

// NewGormAuditService creates and configures a new GormAuditService.
func NewGormAuditService(db *gorm.DB) *GormAuditService {
	return &GormAuditService{
		db: db,
	}
}

// LogEvent saves a SecurityEvent to the database.
func (s *GormAuditService) LogEvent(ctx context.Context, event *models.SecurityEvent) error {
	prepare(event)
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return errors.ErrStorageUnavailable("audit", err)
	}
	return nil
}

// ListByTenant returns the newest events of one tenant.
func (s *GormAuditService) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*models.SecurityEvent, error) {
	var events []*models.SecurityEvent
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, errors.ErrStorageUnavailable("audit", err)
	}
	return events, nil
}

// prepare fills identity fields left empty by callers.
func prepare(event *models.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
}
