package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/tenancy"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

const maxIdempotencyKeyLength = 128

// Idempotency rejects a second submission that reuses an Idempotency-Key within the
// configured TTL. Keys are scoped per tenant. Requests without the header pass through.
// Only a 2xx response keeps the key; any other outcome, a panic included, releases it so
// the client may retry the corrected request.
// Idempotency 使用 Redis SETNX 拒绝重复提交（409 Conflict）。
func Idempotency(redisClient redis.UniversalClient, cfg *config.IdempotencyConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || cfg == nil || !cfg.Enabled {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(constants.HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			dto.SendError(c, errors.ErrInvalidRequest("Idempotency-Key too long"))
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		tenantID, ok := tenancy.ValidatedTenantID(ctx)
		if !ok {
			tenantID = "anonymous"
		}
		redisKey := cfg.KeyPrefix + tenantID + ":" + key

		// SETNX makes the check-and-claim atomic across replicas.
		isNew, err := redisClient.SetNX(ctx, redisKey, c.Request.Method+" "+c.FullPath(), cfg.TTL).Result()
		if err != nil {
			log.Error(ctx, "Idempotency check failed, continuing", err, logger.String("tenant_id", tenantID))
			c.Next() // fail open
			return
		}
		if !isNew {
			log.Warn(ctx, "Duplicate submission rejected", logger.String("tenant_id", tenantID))
			dto.SendError(c, errors.ErrConflict("idempotency key already used"))
			c.Abort()
			return
		}

		completed := false
		defer func() {
			if completed && isSuccess(c.Writer.Status()) {
				return
			}
			if err := redisClient.Del(context.WithoutCancel(ctx), redisKey).Err(); err != nil {
				log.Warn(ctx, "Failed to release idempotency key", logger.String("error", err.Error()))
			}
		}()
		c.Next()
		completed = true
	}
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
