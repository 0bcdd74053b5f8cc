package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/repository"
	"github.com/turtacn/shieldgate/internal/domain/service/mocks"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/errors"
	"github.com/turtacn/shieldgate/pkg/logger"
)

type salesFixture struct {
	*guardFixture
	repo  *mocks.MockSaleRepository
	sales SalesAppService
}

func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()
	g := newGuardFixture(t)
	repo := new(mocks.MockSaleRepository)
	return &salesFixture{
		guardFixture: g,
		repo:         repo,
		sales:        NewSalesAppService(g.guard, repo, g.redactor, g.audit, nil, logger.NewNoopLogger()),
	}
}

func TestSales_List(t *testing.T) {
	f := newSalesFixture(t)
	ctx := tenantCtx(t, "agency-a")

	sale := models.NewSale("agency-a", "Ana", "Bariloche 7 noches", "Bariloche", "USD", 1500, 450, 675, 0)
	f.repo.On("List", mock.Anything, "agency-a", repository.SaleFilter{Search: "bari", Limit: 10, Offset: 10}).
		Return([]*models.Sale{sale}, int64(11), nil).Once()

	resp, err := f.sales.List(ctx, &dto.ListSalesRequest{Search: " bari ", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, sale.ID, resp.Items[0].ID)
	assert.Equal(t, 2625.0, resp.Items[0].TotalAmount)
	assert.Equal(t, dto.PaginationResponse{Page: 2, PageSize: 10, Total: 11, TotalPages: 2}, resp.Pagination)

	f.repo.On("List", mock.Anything, "agency-a", repository.SaleFilter{Limit: constants.DefaultPageSize}).
		Return([]*models.Sale{}, int64(0), nil).Once()
	resp, err = f.sales.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	f.repo.AssertExpectations(t)
}

func TestSales_List_RejectsInjectedSearch(t *testing.T) {
	f := newSalesFixture(t)
	ctx := tenantCtx(t, "agency-a")
	f.audit.On("LogEvent", mock.Anything, eventOfType(constants.AuditEventInputRejected)).Return(nil).Once()

	_, err := f.sales.List(ctx, &dto.ListSalesRequest{Search: "x' UNION SELECT password FROM users --"})
	assert.True(t, errors.IsInputRejected(err))
	f.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestSales_List_InvalidStatus(t *testing.T) {
	f := newSalesFixture(t)
	_, err := f.sales.List(tenantCtx(t, "agency-a"), &dto.ListSalesRequest{Status: "shipped"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeInvalidRequest, appErr.Code())
}

func TestSales_Get(t *testing.T) {
	f := newSalesFixture(t)
	ctx := tenantCtx(t, "agency-a")

	f.repo.On("FindByID", mock.Anything, "agency-a", "missing").Return(nil, errors.ErrNotFound("sale", "missing")).Once()
	_, err := f.sales.Get(ctx, "missing")
	assert.True(t, errors.IsNotFoundError(err))

	f.repo.On("FindByID", mock.Anything, "agency-a", "leaked").
		Return(nil, errors.ErrIsolationViolation("agency-a", "agency-b")).Once()
	f.audit.On("LogEvent", mock.Anything, mock.MatchedBy(func(e *models.SecurityEvent) bool {
		return e.EventType == constants.AuditEventIsolationViolation && e.TenantID == "agency-a"
	})).Return(nil).Once()
	_, err = f.sales.Get(ctx, "leaked")
	assert.True(t, errors.IsIsolationViolation(err))
	f.audit.AssertExpectations(t)

	_, err = f.sales.Get(context.Background(), "any")
	assert.True(t, errors.IsAuthenticationError(err))
}

func TestSales_Create_RedactsAuditSnapshot(t *testing.T) {
	f := newSalesFixture(t)
	ctx := tenantCtx(t, "agency-a")

	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Sale) bool {
		return s.TenantID == "agency-a" && s.CustomerEmail == "ana@example.com" && s.TotalAmount == 2625
	})).Return(nil).Once()

	var captured *models.SecurityEvent
	f.audit.On("LogEvent", mock.Anything, eventOfType(constants.AuditEventSaleCreated)).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*models.SecurityEvent) }).
		Return(nil).Once()

	resp, err := f.sales.Create(ctx, &dto.CreateSaleRequest{
		CustomerName:      "Ana Pérez",
		CustomerEmail:     "ana@example.com",
		Description:       "Bariloche 7 noches",
		Destination:       "Bariloche",
		Currency:          "USD",
		BaseAmount:        1500,
		CountryTax:        450,
		IncomeWithholding: 675,
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", resp.CustomerEmail)
	assert.Equal(t, string(models.SaleStatusPending), resp.Status)

	require.NotNil(t, captured)
	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(captured.NewValues, &snapshot))
	assert.Equal(t, "a***@example.com", snapshot["customer_email"])
	assert.NotContains(t, string(captured.NewValues), "ana@example.com")
	f.repo.AssertExpectations(t)
}

func TestSales_Create_Validation(t *testing.T) {
	f := newSalesFixture(t)
	ctx := tenantCtx(t, "agency-a")

	_, err := f.sales.Create(ctx, &dto.CreateSaleRequest{Description: "x", Currency: "usd", BaseAmount: -1})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, constants.ErrCodeInvalidRequest, appErr.Code())
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
