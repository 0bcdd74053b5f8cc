// Package constants defines system-wide constants for the shieldgate request-defense service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is the name reported in logs, traces and health responses
	ServiceName = "shieldgate"

	// ServiceVersion is the current release of the service
	ServiceVersion = "1.0.0"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "SHIELDGATE"
)

// ================================================================================
// Credential Constants
// ================================================================================

// TokenTypeBearer is the scheme expected in the Authorization header
const TokenTypeBearer = "Bearer"

// Permissions carried in tenant tokens
const (
	PermissionRead   = "read"
	PermissionWrite  = "write"
	PermissionDelete = "delete"
)

const (
	// AccessTokenDefaultTTL is the default lifetime of tenant access tokens (60 minutes)
	AccessTokenDefaultTTL = 60 * time.Minute

	// AccessTokenMaxTTL bounds operator-issued tokens
	AccessTokenMaxTTL = 24 * time.Hour

	// TokenIssuer is the iss claim written and expected on tenant tokens
	TokenIssuer = "shieldgate"

	// MinSigningKeyLength is the shortest HS256 secret accepted at startup
	MinSigningKeyLength = 32
)

// ================================================================================
// Rate Limiting Constants
// ================================================================================

const (
	// RateLimitDefaultCapacity is the steady-state allowance per window
	RateLimitDefaultCapacity = 100

	// RateLimitDefaultBurst is the headroom above capacity
	RateLimitDefaultBurst = 20

	// RateLimitDefaultWindow is the refill window
	RateLimitDefaultWindow = 60 * time.Second

	// RateLimitKeyPrefix namespaces bucket keys in the shared store
	RateLimitKeyPrefix = "rate_limit"

	// RateLimitIdleFactor multiplies the window to get the bucket expiry
	RateLimitIdleFactor = 2
)

// RateLimitScope distinguishes bucket owners so tenant and network keys never collide
type RateLimitScope string

const (
	// RateLimitScopeTenant keys buckets by validated tenant id
	RateLimitScopeTenant RateLimitScope = "tenant"

	// RateLimitScopeIP keys buckets by caller network origin
	RateLimitScopeIP RateLimitScope = "ip"
)

// ================================================================================
// Guardrail Constants
// ================================================================================

const (
	// GenerationDefaultTimeout is the default bound on the text-generation call
	GenerationDefaultTimeout = 10 * time.Second

	// GenerationMaxTimeout is the hard ceiling accepted from configuration
	GenerationMaxTimeout = 10 * time.Second

	// GenerationMaxTokens is the completion budget for assistant replies
	GenerationMaxTokens = 1024

	// MaxMessageLength bounds inbound assistant messages (runes)
	MaxMessageLength = 4000

	// PricePlaceholder replaces currency amounts that cannot be traced to verified data
	PricePlaceholder = "[PRICE AVAILABLE ON REQUEST]"

	// ApologyMessage is returned when the generation service fails
	ApologyMessage = "Sorry, the assistant is temporarily unavailable. Please try again in a few minutes or contact an agent."

	// RefusalMessage replaces responses discarded by output validation
	RefusalMessage = "Sorry, I can't help with that request. An agent can assist you directly."

	// BlockedMessage is returned to callers whose message was rejected by input validation
	BlockedMessage = "Your message was blocked by our security policies."
)

// Output validation warnings.
const (
	WarningHallucinatedPrices = "hallucinated_prices"
	WarningUngroundedPrice    = "ungrounded_price"
	WarningSystemPromptLeak   = "system_prompt_leak"
	WarningPIIInOutput        = "pii_in_output"
)

// Threat categories reported to callers. Rule text is never exposed.
const (
	ThreatCategoryPromptInjection = "prompt_injection"
	ThreatCategorySQLInjection    = "sql_injection"
	ThreatCategoryObfuscation     = "obfuscation"
	ThreatCategoryPIIDetected     = "pii_detected"
)

// ================================================================================
// Audit Constants
// ================================================================================

// AuditEventType is the type of a security event
type AuditEventType string

const (
	// AuditEventGuardrailTriggered is written when an assistant message is blocked
	AuditEventGuardrailTriggered AuditEventType = "AI_GUARDRAIL_TRIGGERED"

	// AuditEventOutputRejected is written when generated text is discarded
	AuditEventOutputRejected AuditEventType = "AI_OUTPUT_REJECTED"

	// AuditEventOutputFlagged is written when generated text is altered but released
	AuditEventOutputFlagged AuditEventType = "AI_OUTPUT_FLAGGED"

	// AuditEventIsolationViolation is written when a resource owner mismatch is detected
	AuditEventIsolationViolation AuditEventType = "TENANT_ISOLATION_VIOLATION"

	// AuditEventInputRejected is written when a request parameter fails SQL screening
	AuditEventInputRejected AuditEventType = "INPUT_REJECTED"

	// AuditEventRateLimited is written when a tenant exhausts its bucket
	AuditEventRateLimited AuditEventType = "RATE_LIMIT_EXCEEDED"

	// AuditEventSaleCreated is written when a sale record is stored
	AuditEventSaleCreated AuditEventType = "SALE_CREATED"
)

// Audit severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	// AssistantActor is the actor name recorded for assistant events
	AssistantActor = "assistant"

	// AssistantResource is the resource name recorded for assistant events
	AssistantResource = "assistant"
)

// ================================================================================
// Storage Constants
// ================================================================================

const (
	// TenantSettingName is the transaction-local variable read by row-level security policies
	TenantSettingName = "app.current_tenant_id"

	// DefaultQueryTimeout bounds storage calls from request handlers
	DefaultQueryTimeout = 5 * time.Second

	// DefaultPageSize is the page size for listings
	DefaultPageSize = 20

	// MaxPageSize caps caller-supplied page sizes
	MaxPageSize = 100
)

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode is a stable machine-readable error identifier
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates the request is malformed
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeUnauthorized indicates the credential is missing or not valid
	ErrCodeUnauthorized ErrorCode = "unauthorized"

	// ErrCodeForbidden indicates the tenant lacks a permission
	ErrCodeForbidden ErrorCode = "forbidden"

	// ErrCodeRateLimitExceeded indicates the bucket is exhausted
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"

	// ErrCodeInputRejected indicates input validation blocked the message
	ErrCodeInputRejected ErrorCode = "input_rejected"

	// ErrCodeOutputRejected indicates generated text was discarded
	ErrCodeOutputRejected ErrorCode = "output_rejected"

	// ErrCodeGenerationFailed indicates the generation service timed out or failed
	ErrCodeGenerationFailed ErrorCode = "generation_failed"

	// ErrCodeConflict indicates a duplicate submission
	ErrCodeConflict ErrorCode = "conflict"

	// ErrCodeNotFound indicates the resource does not exist for this tenant
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeStorageUnavailable indicates the store could not be reached
	ErrCodeStorageUnavailable ErrorCode = "temporarily_unavailable"

	// ErrCodeServerError indicates an internal error; isolation violations map here
	ErrCodeServerError ErrorCode = "server_error"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	HeaderAuthorization      = "Authorization"
	HeaderRequestID          = "X-Request-ID"
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderIdempotencyKey     = "Idempotency-Key"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyClientIP is the key for client IP address in context
	ContextKeyClientIP ContextKey = "client_ip"
)

// Gin context keys set by middleware.
const (
	GinKeyTenantContext = "tenant_context"
	GinKeyRequestID     = "request_id"
)
