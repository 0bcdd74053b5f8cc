// Package middleware holds the gin middleware chain of the public API: request ids,
// access logging, panic recovery, observability, tenant authentication, rate limiting and
// idempotency.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/shieldgate/pkg/constants"
)

const maxRequestIDLength = 128

// RequestID assigns every request an id. A caller-supplied X-Request-ID is reused when it
// is reasonably sized; otherwise a new UUID is generated.
// RequestID 为每个请求分配 ID。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(constants.HeaderRequestID))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Set(constants.GinKeyRequestID, id)
		c.Header(constants.HeaderRequestID, id)

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, id)
		ctx = context.WithValue(ctx, constants.ContextKeyClientIP, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
