// Package service defines the interfaces the defense pipeline consumes. Implementations live
// in the infrastructure layer; tests use the testify mocks in the mocks package.
package service

import (
	"context"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/pkg/constants"
)

//go:generate mockery --name RateLimiter --output mocks --outpkg mocks

// RateLimiter admits or rejects requests per identifier using a token bucket.
// RateLimiter 使用令牌桶按标识符准入或拒绝请求。
type RateLimiter interface {
	// Check consumes one token for id in scope when available and reports the decision.
	// Check 在令牌可用时为作用域内的 id 消耗一个令牌，并返回决策。
	Check(ctx context.Context, scope constants.RateLimitScope, id string) (*models.RateDecision, error)

	// Allow is Check reduced to the admission flag.
	// Allow 是只返回准入标志的 Check。
	Allow(ctx context.Context, scope constants.RateLimitScope, id string) (bool, error)
}

//go:generate mockery --name TokenVerifier --output mocks --outpkg mocks

// TokenVerifier turns a presented credential into a TenantContext.
// TokenVerifier 将提交的凭证转换为 TenantContext。
type TokenVerifier interface {
	// Verify validates signature, algorithm and expiry. Any failure is an authentication error.
	// Verify 校验签名、算法和过期时间。任何失败都是认证错误。
	Verify(ctx context.Context, token string) (*models.TenantContext, error)
}

// GenerationRequest is the input of one text-generation call.
type GenerationRequest struct {
	SystemPrompt string
	UserText     string
	MaxTokens    int
}

//go:generate mockery --name Generator --output mocks --outpkg mocks

// Generator is the external text-generation service. Implementations must honor ctx
// cancellation and deadlines.
// Generator 是外部文本生成服务。实现必须遵守 ctx 的取消和截止时间。
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

//go:generate mockery --name AuditService --output mocks --outpkg mocks

// AuditService defines the interface for logging security-sensitive audit events.
// AuditService 定义了用于记录安全敏感审计事件的接口。
type AuditService interface {
	// LogEvent appends an event. Events are never updated or deleted.
	// LogEvent 追加一个事件。事件永不更新或删除。
	LogEvent(ctx context.Context, event *models.SecurityEvent) error
}
