package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// Kafka message header names.
const (
	HeaderEventType = "event_type"
	HeaderSeverity  = "severity"
	HeaderSignature = "signature"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaAuditSink publishes security events to a Kafka topic, keyed by tenant so one tenant's
// events stay ordered within a partition.
type KafkaAuditSink struct {
	writer  MessageWriter
	secret  string
	timeout time.Duration
	logger  logger.Logger
}

var _ service.AuditService = (*KafkaAuditSink)(nil)

// NewKafkaWriter builds the production writer from configuration.
func NewKafkaWriter(cfg config.AuditConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaAuditSink creates a new KafkaAuditSink.
func NewKafkaAuditSink(writer MessageWriter, cfg config.AuditConfig, log logger.Logger) *KafkaAuditSink {
	return &KafkaAuditSink{
		writer:  writer,
		secret:  cfg.SigningSecret,
		timeout: cfg.WriteTimeout,
		logger:  log.WithComponent("audit_kafka"),
	}
}

// LogEvent sends an audit event to the Kafka topic.
func (k *KafkaAuditSink) LogEvent(ctx context.Context, event *models.SecurityEvent) error {
	prepare(event)
	payload, err := json.Marshal(event)
	if err != nil {
		k.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(event.EventType)},
		{Key: HeaderSeverity, Value: []byte(event.Severity)},
	}
	if k.secret != "" {
		headers = append(headers, kafka.Header{Key: HeaderSignature, Value: []byte(SignPayload(payload, k.secret))})
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.TenantID),
		Value:   payload,
		Headers: headers,
		Time:    event.CreatedAt,
	})
	if err != nil {
		k.logger.Error(ctx, "failed to write message to Kafka", err,
			logger.String("event_id", event.ID),
			logger.String("event_type", string(event.EventType)),
		)
	}
	return err
}

// Close flushes and closes the underlying writer.
func (k *KafkaAuditSink) Close() error {
	return k.writer.Close()
}
