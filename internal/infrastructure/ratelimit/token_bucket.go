// Package ratelimit provides rate limiting implementations.
package ratelimit

import (
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// BucketParams holds the token bucket parameters shared by every identifier.
type BucketParams struct {
	// Capacity is the steady-state allowance per window
	Capacity float64
	// Burst is the headroom above Capacity
	Burst float64
	// Window is the time it takes to accrue Capacity tokens
	Window time.Duration
}

// MaxTokens returns the bucket ceiling.
func (p BucketParams) MaxTokens() float64 { return p.Capacity + p.Burst }

// IdleTTL returns how long an untouched bucket is kept.
func (p BucketParams) IdleTTL() time.Duration { return constants.RateLimitIdleFactor * p.Window }

// RetryAfter returns how long a bucket holding tokens needs until one token is available.
func (p BucketParams) RetryAfter(tokens float64) time.Duration {
	if tokens >= 1 || p.Capacity <= 0 {
		return 0
	}
	missing := 1 - tokens
	return time.Duration(math.Ceil(missing * float64(p.Window) / p.Capacity))
}

// Step applies one admission check to state at now. A nil state is a fresh bucket, which
// starts full at MaxTokens. It returns the refilled token count (after consumption when
// allowed), the state to persist, and the decision. When the request is rejected the
// returned state equals the input and must not be written.
//
// Step is the reference for the Lua script evaluated by RedisRateLimiter; both must agree.
func Step(state *models.RateBucket, p BucketParams, now time.Time) (float64, models.RateBucket, bool) {
	prev := models.RateBucket{Tokens: p.MaxTokens(), LastRefill: now}
	if state != nil {
		prev = *state
	}

	elapsed := now.Sub(prev.LastRefill)
	if elapsed < 0 {
		elapsed = 0
	}
	tokens := prev.Tokens
	if p.Window > 0 {
		tokens += float64(elapsed.Milliseconds()) * p.Capacity / float64(p.Window.Milliseconds())
	}
	tokens = math.Min(tokens, p.MaxTokens())

	if tokens < 1 {
		return tokens, prev, false
	}
	tokens--
	return tokens, models.RateBucket{Tokens: tokens, LastRefill: now}, true
}

const lockStripes = 64

// LocalStore keeps buckets in process memory. It serves single-node deployments and stands
// in for Redis while it is unreachable. Read-modify-write is serialized per key by a striped
// mutex, so different identifiers rarely contend.
type LocalStore struct {
	params  BucketParams
	buckets *cache.Cache
	locks   [lockStripes]sync.Mutex
}

// NewLocalStore creates a store whose entries expire after the idle TTL.
func NewLocalStore(p BucketParams) *LocalStore {
	return &LocalStore{
		params:  p,
		buckets: cache.New(p.IdleTTL(), p.Window),
	}
}

func (s *LocalStore) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.locks[h.Sum32()%lockStripes]
}

// Take runs one Step for key atomically and returns the token count and decision.
func (s *LocalStore) Take(key string, now time.Time) (float64, bool) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	var state *models.RateBucket
	if v, ok := s.buckets.Get(key); ok {
		b := v.(models.RateBucket)
		state = &b
	}
	tokens, next, allowed := Step(state, s.params, now)
	if allowed {
		s.buckets.Set(key, next, cache.DefaultExpiration)
	}
	return tokens, allowed
}

// Remove drops the bucket for key.
func (s *LocalStore) Remove(key string) {
	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()
	s.buckets.Delete(key)
}

// Len returns the number of live buckets.
func (s *LocalStore) Len() int {
	return s.buckets.ItemCount()
}

// Clear removes every bucket.
func (s *LocalStore) Clear() {
	s.buckets.Flush()
}
