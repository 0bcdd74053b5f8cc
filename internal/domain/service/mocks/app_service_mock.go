package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/pkg/constants"
)

// MockGuardrailAppService is a mock of the guardrail application service.
type MockGuardrailAppService struct {
	mock.Mock
}

func (m *MockGuardrailAppService) ValidateInput(ctx context.Context, text, tenantID string) models.GuardrailVerdict {
	args := m.Called(ctx, text, tenantID)
	return args.Get(0).(models.GuardrailVerdict)
}

func (m *MockGuardrailAppService) CheckRateLimit(ctx context.Context, identifier string) (bool, error) {
	args := m.Called(ctx, identifier)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuardrailAppService) Admit(ctx context.Context, scope constants.RateLimitScope, id string) (*models.RateDecision, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RateDecision), args.Error(1)
}

func (m *MockGuardrailAppService) ValidateOutput(ctx context.Context, text string, rec *models.FinancialRecord) models.OutputVerdict {
	args := m.Called(ctx, text, rec)
	return args.Get(0).(models.OutputVerdict)
}

func (m *MockGuardrailAppService) FindVerifiedRecord(ctx context.Context, tenantID, text string) (*models.FinancialRecord, error) {
	args := m.Called(ctx, tenantID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinancialRecord), args.Error(1)
}

func (m *MockGuardrailAppService) ScreenParameter(ctx context.Context, name, value string) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

// MockAssistantAppService is a mock of the assistant application service.
type MockAssistantAppService struct {
	mock.Mock
}

func (m *MockAssistantAppService) ProcessMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ChatResponse), args.Error(1)
}

// MockSalesAppService is a mock of the sales application service.
type MockSalesAppService struct {
	mock.Mock
}

func (m *MockSalesAppService) List(ctx context.Context, req *dto.ListSalesRequest) (*dto.SaleListResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SaleListResponse), args.Error(1)
}

func (m *MockSalesAppService) Get(ctx context.Context, id string) (*dto.SaleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SaleResponse), args.Error(1)
}

func (m *MockSalesAppService) Create(ctx context.Context, req *dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SaleResponse), args.Error(1)
}
