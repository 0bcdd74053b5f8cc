package middleware

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// Logging writes one access-log line per request. Request bodies are never logged.
func Logging(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Int64("latency_ms", time.Since(start).Milliseconds()),
			logger.String("client_ip", c.ClientIP()),
			logger.String("request_id", c.GetString(constants.GinKeyRequestID)),
		}
		if tenantID, ok := tenancy.TenantIDFromContext(ctx); ok {
			fields = append(fields, logger.String("tenant_id", tenantID))
		}

		switch {
		case status >= http.StatusInternalServerError:
			var err error = stderrors.New(http.StatusText(status))
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			log.Error(ctx, "Request failed", err, fields...)
		case status >= http.StatusBadRequest:
			log.Warn(ctx, "Request rejected", fields...)
		default:
			log.Info(ctx, "Request processed", fields...)
		}
	}
}
