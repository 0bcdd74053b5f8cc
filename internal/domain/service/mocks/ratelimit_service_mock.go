package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// MockRateLimiter is a mock implementation of service.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Check(ctx context.Context, scope constants.RateLimitScope, id string) (*models.RateDecision, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RateDecision), args.Error(1)
}

func (m *MockRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, id string) (bool, error) {
	args := m.Called(ctx, scope, id)
	return args.Bool(0), args.Error(1)
}
