package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/shieldgate/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker is a dependency probed by the health endpoints. DBConnection and
// RedisConnection implement it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) (map[string]interface{}, error)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checkers map[string]HealthChecker
	log      logger.Logger
}

// NewHealthHandler creates a new HealthHandler. Nil checkers are skipped, so a disabled
// dependency does not fail readiness.
func NewHealthHandler(checkers map[string]HealthChecker, log logger.Logger) *HealthHandler {
	active := make(map[string]HealthChecker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandler{checkers: active, log: log.WithComponent("health")}
}

// HealthCheck reports every dependency with its details.
// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks, healthy := h.performChecks(c.Request.Context())

	status, httpStatus := "healthy", http.StatusOK
	if !healthy {
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// ReadinessCheck answers whether the service can take traffic.
// GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if _, healthy := h.performChecks(c.Request.Context()); !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// LivenessCheck answers whether the process is up. It probes nothing.
// GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// performChecks probes every dependency concurrently under one deadline.
func (h *HealthHandler) performChecks(ctx context.Context) (map[string]interface{}, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		healthy = true
		checks  = make(map[string]interface{}, len(h.checkers))
	)
	for name, checker := range h.checkers {
		g.Go(func() error {
			details, err := checker.HealthCheck(ctx)
			result := map[string]interface{}{"status": "ok"}
			if err != nil {
				h.log.Warn(ctx, "Health check failed", logger.String("dependency", name), logger.String("error", err.Error()))
				result = map[string]interface{}{"status": "error", "error": err.Error()}
			} else if details != nil {
				result["details"] = details
			}

			mu.Lock()
			defer mu.Unlock()
			checks[name] = result
			if err != nil {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()
	return checks, healthy
}
