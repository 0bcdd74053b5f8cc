package logger

import "context"

// NoopLogger is a logger that does nothing.
type NoopLogger struct{}

// NewNoopLogger creates a new NoopLogger.
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(ctx context.Context, message string, fields ...Field) {}
func (l *NoopLogger) Info(ctx context.Context, message string, fields ...Field)  {}
func (l *NoopLogger) Warn(ctx context.Context, message string, fields ...Field)  {}
func (l *NoopLogger) Error(ctx context.Context, message string, err error, fields ...Field) {
}
func (l *NoopLogger) WithFields(fields ...Field) Logger       { return l }
func (l *NoopLogger) WithComponent(component string) Logger { return l }
