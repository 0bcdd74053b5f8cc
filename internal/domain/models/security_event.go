package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// SecurityEvent is an append-only audit record produced by the defense pipeline.
type SecurityEvent struct {
	ID           string                   `gorm:"type:varchar(64);primaryKey" json:"id"`
	TenantID     string                   `gorm:"type:varchar(64);index" json:"tenant_id"`
	Actor        string                   `gorm:"type:varchar(128);not null" json:"actor"`
	EventType    constants.AuditEventType `gorm:"type:varchar(64);not null;index" json:"event_type"`
	Severity     string                   `gorm:"type:varchar(16);not null" json:"severity"`
	Resource     string                   `gorm:"type:varchar(128)" json:"resource"`
	Description  string                   `gorm:"type:text" json:"description"`
	Tags         string                   `gorm:"type:varchar(255)" json:"tags"`
	OldValues    json.RawMessage          `gorm:"type:text" json:"old_values,omitempty"`
	NewValues    json.RawMessage          `gorm:"type:text" json:"new_values,omitempty"`
	IsSuspicious bool                     `gorm:"not null;default:false;index" json:"is_suspicious"`
	RequestID    string                   `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	ClientIP     string                   `gorm:"type:varchar(64)" json:"client_ip,omitempty"`
	CreatedAt    time.Time                `gorm:"not null;index" json:"created_at"`
}

// TableName overrides the default table name.
func (SecurityEvent) TableName() string { return "security_events" }

// NewSecurityEvent creates a new security event.
func NewSecurityEvent(tenantID string, eventType constants.AuditEventType, severity, description string) *SecurityEvent {
	return &SecurityEvent{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Actor:       "system",
		EventType:   eventType,
		Severity:    severity,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithActor sets the actor and resource.
func (e *SecurityEvent) WithActor(actor, resource string) *SecurityEvent {
	e.Actor = actor
	e.Resource = resource
	return e
}

// WithTags sets the tags.
func (e *SecurityEvent) WithTags(tags ...string) *SecurityEvent {
	e.Tags = strings.Join(tags, ",")
	return e
}

// WithSnapshots sets the before/after payload snapshots. Callers pass redacted data only.
func (e *SecurityEvent) WithSnapshots(before, after interface{}) *SecurityEvent {
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			e.OldValues = b
		}
	}
	if after != nil {
		if b, err := json.Marshal(after); err == nil {
			e.NewValues = b
		}
	}
	return e
}

// WithSuspicious marks the event for review.
func (e *SecurityEvent) WithSuspicious(suspicious bool) *SecurityEvent {
	e.IsSuspicious = suspicious
	return e
}

// WithRequestInfo sets request correlation data.
func (e *SecurityEvent) WithRequestInfo(requestID, clientIP string) *SecurityEvent {
	e.RequestID = requestID
	e.ClientIP = clientIP
	return e
}

// TagList splits the stored tags.
func (e *SecurityEvent) TagList() []string {
	if e.Tags == "" {
		return nil
	}
	return strings.Split(e.Tags, ",")
}
