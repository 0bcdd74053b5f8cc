package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// TenantScope runs storage work in a transaction bound to the validated tenant of the
// request. On PostgreSQL the tenant id is published as the transaction-local setting
// app.current_tenant_id, which row-level security policies read.
type TenantScope struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewTenantScope creates a new TenantScope.
func NewTenantScope(db *gorm.DB, log logger.Logger) *TenantScope {
	return &TenantScope{db: db, logger: log.WithComponent("tenant_scope")}
}

// Run executes fn inside a transaction. The tenant comes from the validated-tenant marker
// of ctx; a context without one is refused before any statement runs.
func (s *TenantScope) Run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tenantID, ok := tenancy.ValidatedTenantID(ctx)
	if !ok {
		s.logger.Error(ctx, "storage access without validated tenant", errors.ErrIsolationViolation("", ""))
		return errors.ErrIsolationViolation("", "")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			// third argument true: the setting is dropped at commit/rollback
			if err := tx.Exec("SELECT set_config(?, ?, true)", constants.TenantSettingName, tenantID).Error; err != nil {
				return mapDBErr(err, "tenant_scope", tenantID)
			}
		}
		return fn(tx)
	})
}

// DB returns the underlying handle for work that is not tenant data (migrations, audit).
func (s *TenantScope) DB() *gorm.DB {
	return s.db
}
