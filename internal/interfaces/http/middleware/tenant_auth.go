package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// ginKeyAuthFailure holds why Authenticate left the request anonymous.
const ginKeyAuthFailure = "auth_failure"

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.TokenTypeBearer) {
		return ""
	}
	return parts[1]
}

// Authenticate verifies the bearer token and binds the resulting tenant to the request
// context. A missing or rejected credential leaves the request anonymous: the limiter then
// charges the caller address and RequireTenant answers 401.
// Authenticate 校验 Bearer 令牌并将租户绑定到请求上下文。
func Authenticate(verifier service.TokenVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token := extractBearer(c.GetHeader(constants.HeaderAuthorization))
		if token == "" {
			c.Set(ginKeyAuthFailure, "missing bearer token")
			c.Next()
			return
		}

		tc, err := verifier.Verify(ctx, token)
		if err != nil {
			log.Warn(ctx, "Token verification failed",
				logger.String("error", err.Error()),
				logger.String("client_ip", c.ClientIP()),
			)
			c.Set(ginKeyAuthFailure, "invalid token")
			c.Next()
			return
		}

		bound, err := tenancy.Bind(ctx, tc)
		if err != nil {
			log.Warn(ctx, "Tenant binding refused", logger.String("error", err.Error()))
			c.Set(ginKeyAuthFailure, "invalid tenant")
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(bound)
		c.Set(constants.GinKeyTenantContext, tc)
		c.Next()
	}
}

// RequireTenant rejects requests without a validated tenant. Every failure is a 401; the
// reason is logged, not returned.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := tenancy.ValidatedTenantID(c.Request.Context()); ok {
			c.Next()
			return
		}
		reason := c.GetString(ginKeyAuthFailure)
		if reason == "" {
			reason = "missing bearer token"
		}
		dto.SendError(c, errors.ErrAuthentication(reason))
		c.Abort()
	}
}

// RequirePermission rejects tenants whose credential does not grant perm.
func RequirePermission(perm string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tc, ok := tenancy.FromContext(ctx)
		if !ok || !tc.HasPermission(perm) {
			tenantID := ""
			if ok {
				tenantID = tc.ID()
			}
			log.Warn(ctx, "Permission denied",
				logger.String("tenant_id", tenantID),
				logger.String("permission", perm),
			)
			dto.SendError(c, errors.ErrForbidden(perm))
			c.Abort()
			return
		}
		c.Next()
	}
}
