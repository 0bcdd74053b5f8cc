package audit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
)

// MultiSink fans one event out to several sinks. Every sink is attempted; the first error
// is returned.
type MultiSink struct {
	sinks []service.AuditService
}

var _ service.AuditService = (*MultiSink)(nil)

// NewMultiSink creates a MultiSink. Nil sinks are skipped.
func NewMultiSink(sinks ...service.AuditService) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// LogEvent delivers event to all sinks concurrently.
func (m *MultiSink) LogEvent(ctx context.Context, event *models.SecurityEvent) error {
	prepare(event)
	var g errgroup.Group
	for _, s := range m.sinks {
		s := s
		g.Go(func() error {
			// each sink gets its own copy so none can mutate what another writes
			e := *event
			return s.LogEvent(ctx, &e)
		})
	}
	return g.Wait()
}

// Len returns the number of configured sinks.
func (m *MultiSink) Len() int { return len(m.sinks) }
