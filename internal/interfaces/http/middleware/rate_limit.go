package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/application/service"
	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// RateLimit admits or rejects the request against a token bucket. Authenticated requests
// use the tenant's bucket, anonymous ones the caller address.
// RateLimit 按租户（已认证）或客户端地址（匿名）进行令牌桶限流。
func RateLimit(guard service.GuardrailAppService, cfg *config.RateLimitConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scope, id := constants.RateLimitScopeIP, c.ClientIP()
		if tenantID, ok := tenancy.ValidatedTenantID(ctx); ok {
			scope, id = constants.RateLimitScopeTenant, tenantID
		}

		decision, err := guard.Admit(ctx, scope, id)
		if err != nil {
			dto.SendError(c, err)
			c.Abort()
			return
		}

		c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			log.Warn(ctx, "Rate limit exceeded",
				logger.String("scope", string(scope)),
				logger.Int("retry_after", retryAfter),
			)
			dto.SendError(c, errors.ErrRateLimitExceeded(retryAfter))
			c.Abort()
			return
		}
		c.Next()
	}
}
