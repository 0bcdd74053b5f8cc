package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/service"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req service.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*models.TenantContext, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantContext), args.Error(1)
}

type MockFinancialRepository struct {
	mock.Mock
}

func (m *MockFinancialRepository) FindAvailableProduct(ctx context.Context, tenantID string, terms []string) (*models.FinancialRecord, error) {
	args := m.Called(ctx, tenantID, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinancialRecord), args.Error(1)
}
