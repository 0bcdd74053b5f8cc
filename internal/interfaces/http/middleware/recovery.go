package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// Recovery turns a handler panic into a 500 response in the API error format.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "Panic recovered", fmt.Errorf("panic: %v", r),
					logger.String("path", c.Request.URL.Path))
				dto.SendError(c, errors.ErrInternal("unexpected server error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}
