package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

// RedisRateLimiter implements distributed token-bucket rate limiting using Redis. Every
// check is one server-side script evaluation, so concurrent requests for the same key can
// never both observe the last token.
type RedisRateLimiter struct {
	client  redis.UniversalClient
	logger  logger.Logger
	config  *RateLimiterConfig
	params  BucketParams
	local   *LocalStore // Fallback for Redis failures and single-node mode
	metrics service.GuardMetrics
	now     func() time.Time
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	// Capacity is the steady-state request allowance per window
	Capacity int
	// Burst is the extra allowance absorbable above Capacity
	Burst int
	// Window is the refill window
	Window time.Duration
	// EnableLocalFallback serves decisions from process memory when Redis fails
	EnableLocalFallback bool
	// FailOpen admits requests when Redis fails and no fallback is enabled
	FailOpen bool
	// KeyPrefix is the Redis key prefix
	KeyPrefix string
}

// DefaultRateLimiterConfig returns default rate limiter configuration.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:            constants.RateLimitDefaultCapacity,
		Burst:               constants.RateLimitDefaultBurst,
		Window:              constants.RateLimitDefaultWindow,
		EnableLocalFallback: true,
		KeyPrefix:           constants.RateLimitKeyPrefix,
	}
}

// ConfigFrom maps the rate_limit section of the service configuration.
func ConfigFrom(c config.RateLimitConfig) *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:            c.Capacity,
		Burst:               c.Burst,
		Window:              c.Window,
		EnableLocalFallback: c.LocalFallback,
		FailOpen:            c.FailOpen,
		KeyPrefix:           c.KeyPrefix,
	}
}

// Option customizes a RedisRateLimiter.
type Option func(*RedisRateLimiter)

// WithClock replaces time.Now. Tests drive the limiter with a simulated clock.
func WithClock(now func() time.Time) Option {
	return func(rl *RedisRateLimiter) { rl.now = now }
}

// WithMetrics records every decision.
func WithMetrics(m service.GuardMetrics) Option {
	return func(rl *RedisRateLimiter) { rl.metrics = m }
}

// Lua script for atomic token bucket operations.
// ARGV: capacity, burst, window_ms, now_ms, ttl_ms. Fresh buckets start full.
// A rejected request writes nothing.
const tokenBucketLuaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])
local max_tokens = capacity + burst

-- Get current state
local state = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = max_tokens
local last_refill = now
if state[1] then
    tokens = tonumber(state[1])
    last_refill = tonumber(state[2]) or now
end

-- Refill tokens based on elapsed time
local elapsed = now - last_refill
if elapsed < 0 then
    elapsed = 0
end
tokens = math.min(max_tokens, tokens + elapsed * capacity / window_ms)

if tokens >= 1 then
    tokens = tokens - 1
    redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(now))
    redis.call('PEXPIRE', key, ttl_ms)
    return {1, tostring(tokens)}
end

return {0, tostring(tokens)}
`

var tokenBucketScript = redis.NewScript(tokenBucketLuaScript)

var _ service.RateLimiter = (*RedisRateLimiter)(nil)

// NewRedisRateLimiter creates a new rate limiter. A nil client runs the limiter on the
// local store only.
//
// Parameters:
//   - client: Redis client, may be nil
//   - config: Rate limiter configuration
//   - log: Logger instance
//
// Returns:
//   - *RedisRateLimiter: Initialized rate limiter
//   - error: Initialization error if any
func NewRedisRateLimiter(
	client redis.UniversalClient,
	config *RateLimiterConfig,
	log logger.Logger,
	opts ...Option,
) (*RedisRateLimiter, error) {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	if config.Capacity <= 0 || config.Burst < 0 || config.Window <= 0 {
		return nil, errors.ErrInvalidRequest("rate limiter needs positive capacity and window and non-negative burst")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = constants.RateLimitKeyPrefix
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}

	params := BucketParams{
		Capacity: float64(config.Capacity),
		Burst:    float64(config.Burst),
		Window:   config.Window,
	}
	rl := &RedisRateLimiter{
		client:  client,
		logger:  log.WithComponent("rate_limiter"),
		config:  config,
		params:  params,
		metrics: service.NoopMetrics{},
		now:     time.Now,
	}
	if client == nil || config.EnableLocalFallback {
		rl.local = NewLocalStore(params)
	}
	for _, opt := range opts {
		opt(rl)
	}

	rl.logger.Info(context.Background(), "Rate limiter initialized",
		logger.Int("capacity", config.Capacity),
		logger.Int("burst", config.Burst),
		logger.Duration("window", config.Window),
		logger.Bool("shared_store", client != nil),
		logger.Bool("local_fallback", config.EnableLocalFallback),
	)

	return rl, nil
}

// Check consumes one token from the bucket of (scope, id) when available.
func (rl *RedisRateLimiter) Check(ctx context.Context, scope constants.RateLimitScope, id string) (*models.RateDecision, error) {
	if id == "" {
		return nil, errors.ErrInvalidRequest("rate limit identifier is required")
	}
	key := rl.buildKey(scope, id)
	now := rl.now()

	tokens, allowed, err := rl.take(ctx, key, now)
	if err != nil {
		return nil, err
	}
	rl.metrics.RecordRateLimitDecision(string(scope), allowed)

	decision := &models.RateDecision{
		Allowed:   allowed,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		Limit:     rl.config.Capacity,
	}
	if !allowed {
		decision.RetryAfter = rl.params.RetryAfter(tokens)
		rl.logger.Debug(ctx, "Rate limit exceeded",
			logger.String("scope", string(scope)),
			logger.Duration("retry_after", decision.RetryAfter),
		)
	}
	return decision, nil
}

// Allow reports only whether the request was admitted.
func (rl *RedisRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, id string) (bool, error) {
	d, err := rl.Check(ctx, scope, id)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// take evaluates the bucket in Redis, falling back per configuration when Redis fails.
func (rl *RedisRateLimiter) take(ctx context.Context, key string, now time.Time) (float64, bool, error) {
	if rl.client == nil {
		tokens, allowed := rl.local.Take(key, now)
		return tokens, allowed, nil
	}

	tokens, allowed, err := rl.executeLuaScript(ctx, key, now)
	if err == nil {
		return tokens, allowed, nil
	}

	rl.logger.Warn(ctx, "Rate limiter store unavailable",
		logger.String("error", err.Error()),
		logger.Bool("local_fallback", rl.local != nil),
		logger.Bool("fail_open", rl.config.FailOpen),
	)
	switch {
	case rl.local != nil:
		tokens, allowed := rl.local.Take(key, now)
		return tokens, allowed, nil
	case rl.config.FailOpen:
		return rl.params.MaxTokens() - 1, true, nil
	default:
		return 0, false, errors.ErrStorageUnavailable("rate limiter store", err)
	}
}

// executeLuaScript executes the token bucket Lua script.
func (rl *RedisRateLimiter) executeLuaScript(ctx context.Context, key string, now time.Time) (float64, bool, error) {
	res, err := tokenBucketScript.Run(ctx, rl.client, []string{key},
		rl.config.Capacity,
		rl.config.Burst,
		rl.config.Window.Milliseconds(),
		now.UnixMilli(),
		rl.params.IdleTTL().Milliseconds(),
	).Slice()
	if err != nil {
		return 0, false, err
	}

	if len(res) != 2 {
		return 0, false, fmt.Errorf("invalid Lua script result: %v", res)
	}
	flag, ok := res[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("invalid Lua script flag: %v", res[0])
	}
	raw, ok := res[1].(string)
	if !ok {
		return 0, false, fmt.Errorf("invalid Lua script tokens: %v", res[1])
	}
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse tokens %q: %w", raw, err)
	}
	return tokens, flag == 1, nil
}

// ResetLimit resets the bucket of (scope, id).
func (rl *RedisRateLimiter) ResetLimit(ctx context.Context, scope constants.RateLimitScope, id string) error {
	key := rl.buildKey(scope, id)

	if rl.client != nil {
		if err := rl.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
			return errors.ErrStorageUnavailable("rate limiter store", err)
		}
	}
	if rl.local != nil {
		rl.local.Remove(key)
	}

	rl.logger.Debug(ctx, "Rate limit reset",
		logger.String("scope", string(scope)),
		logger.String("key", key),
	)
	return nil
}

// buildKey builds a Redis key for rate limiting. The scope segment keeps tenant and network
// identifiers in disjoint key spaces.
func (rl *RedisRateLimiter) buildKey(scope constants.RateLimitScope, id string) string {
	return fmt.Sprintf("%s:%s:%s", rl.config.KeyPrefix, scope, id)
}

// Close closes the rate limiter and releases resources.
func (rl *RedisRateLimiter) Close() error {
	if rl.local != nil {
		rl.local.Clear()
	}
	rl.logger.Info(context.Background(), "Rate limiter closed")
	return nil
}
