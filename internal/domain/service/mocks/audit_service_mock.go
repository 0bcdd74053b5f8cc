package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/constants"
)

var _ service.AuditService = (*MockAuditService)(nil)

// MockAuditService records security events written by the pipeline.
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) LogEvent(ctx context.Context, event *models.SecurityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// EventsOfType returns the logged events of type t, in call order.
func (m *MockAuditService) EventsOfType(t constants.AuditEventType) []*models.SecurityEvent {
	var out []*models.SecurityEvent
	for _, c := range m.Calls {
		if c.Method != "LogEvent" {
			continue
		}
		if ev, ok := c.Arguments.Get(1).(*models.SecurityEvent); ok && ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}
