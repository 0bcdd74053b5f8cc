package audit

import (
	"context"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// LogAuditSink writes security events to the structured service log. Snapshots are not
// logged; the log carries identifiers and classification only.
type LogAuditSink struct {
	logger logger.Logger
}

var _ service.AuditService = (*LogAuditSink)(nil)

// NewLogAuditSink creates a new LogAuditSink.
func NewLogAuditSink(log logger.Logger) *LogAuditSink {
	return &LogAuditSink{logger: log.WithComponent("audit")}
}

// LogEvent writes one log line per event at a level derived from its severity.
func (l *LogAuditSink) LogEvent(ctx context.Context, event *models.SecurityEvent) error {
	prepare(event)
	fields := []logger.Field{
		logger.String("event_id", event.ID),
		logger.String("event_type", string(event.EventType)),
		logger.String("severity", event.Severity),
		logger.String("tenant_id", event.TenantID),
		logger.String("actor", event.Actor),
		logger.String("resource", event.Resource),
		logger.Bool("suspicious", event.IsSuspicious),
		logger.Strings("tags", event.TagList()),
	}
	switch event.Severity {
	case constants.SeverityCritical, constants.SeverityWarning:
		l.logger.Warn(ctx, event.Description, fields...)
	default:
		l.logger.Info(ctx, event.Description, fields...)
	}
	return nil
}
