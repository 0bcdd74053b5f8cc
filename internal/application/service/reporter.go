// Package service provides application-level services that orchestrate the defense pipeline,
// the repositories and the audit log.
package service

import (
	"context"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// securityReporter writes security events and keeps audit failures out of the request path.
type securityReporter struct {
	audit   service.AuditService
	metrics service.GuardMetrics
	logger  logger.Logger
}

func newSecurityReporter(audit service.AuditService, metrics service.GuardMetrics, log logger.Logger) securityReporter {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return securityReporter{audit: audit, metrics: metrics, logger: log}
}

// record appends event to the audit log. A failed write is logged and counted; the request
// continues.
func (r securityReporter) record(ctx context.Context, event *models.SecurityEvent) {
	if r.audit == nil || event == nil {
		return
	}
	event.WithRequestInfo(requestInfo(ctx))
	if err := r.audit.LogEvent(ctx, event); err != nil {
		r.metrics.RecordAuditFailure("audit")
		r.logger.Error(ctx, "Failed to write security event", err,
			logger.String("event_type", string(event.EventType)),
		)
	}
}

// isolationViolation handles an ownership mismatch: error log, metric and a critical audit
// event. The error is returned unchanged so callers can propagate it.
func (r securityReporter) isolationViolation(ctx context.Context, resource string, err error) error {
	r.metrics.RecordIsolationViolation()
	r.logger.Error(ctx, "Tenant isolation violation", err, logger.String("resource", resource))

	tenantID, _ := tenancy.ValidatedTenantID(ctx)
	event := models.NewSecurityEvent(tenantID, constants.AuditEventIsolationViolation, constants.SeverityCritical,
		"resource owned by another tenant reached the request").
		WithActor("system", resource).
		WithTags("security", "tenancy").
		WithSuspicious(true)
	r.record(ctx, event)
	return err
}

// checkIsolation routes isolation violations through the reporter and passes other errors
// through.
func (r securityReporter) checkIsolation(ctx context.Context, resource string, err error) error {
	if err != nil && errors.IsIsolationViolation(err) {
		return r.isolationViolation(ctx, resource, err)
	}
	return err
}

// requestInfo reads the correlation data the HTTP layer stores in the context.
func requestInfo(ctx context.Context) (requestID, clientIP string) {
	requestID, _ = ctx.Value(constants.ContextKeyRequestID).(string)
	clientIP, _ = ctx.Value(constants.ContextKeyClientIP).(string)
	return requestID, clientIP
}

// currentTenant returns the tenant bound to ctx or an authentication error.
func currentTenant(ctx context.Context) (*models.TenantContext, error) {
	tc, ok := tenancy.FromContext(ctx)
	if !ok {
		return nil, errors.ErrAuthentication("missing tenant context")
	}
	return tc, nil
}
