package service

import (
	"context"
	"strings"

	"github.com/turtacn/shieldgate/internal/application/dto"
	"github.com/turtacn/shieldgate/internal/domain/models"
	"github.com/turtacn/shieldgate/internal/domain/pii"
	"github.com/turtacn/shieldgate/internal/domain/repository"
	domainService "github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/logger"
	"github.com/turtacn/shieldgate/pkg/utils"
)

// SalesAppService serves the tenant-scoped sales records.
type SalesAppService interface {
	List(ctx context.Context, req *dto.ListSalesRequest) (*dto.SaleListResponse, error)
	Get(ctx context.Context, id string) (*dto.SaleResponse, error)
	Create(ctx context.Context, req *dto.CreateSaleRequest) (*dto.SaleResponse, error)
}

type salesAppServiceImpl struct {
	securityReporter
	guard    GuardrailAppService
	saleRepo repository.SaleRepository
	redactor *pii.Redactor
}

// NewSalesAppService creates a new instance of SalesAppService
func NewSalesAppService(
	guard GuardrailAppService,
	saleRepo repository.SaleRepository,
	redactor *pii.Redactor,
	auditService domainService.AuditService,
	metrics domainService.GuardMetrics,
	log logger.Logger,
) SalesAppService {
	reporter := newSecurityReporter(auditService, metrics, log)
	reporter.logger = reporter.logger.WithComponent("sales")
	return &salesAppServiceImpl{
		securityReporter: reporter,
		guard:            guard,
		saleRepo:         saleRepo,
		redactor:         redactor,
	}
}

// List implements SalesAppService. The search parameter is SQL-screened before it reaches
// storage.
func (s *salesAppServiceImpl) List(ctx context.Context, req *dto.ListSalesRequest) (*dto.SaleListResponse, error) {
	tc, err := currentTenant(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &dto.ListSalesRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.guard.ScreenParameter(ctx, "search", req.Search); err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}

	sales, total, err := s.saleRepo.List(ctx, tc.ID(), repository.SaleFilter{
		Search: strings.TrimSpace(req.Search),
		Status: models.SaleStatus(req.Status),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to list sales", err, logger.String("tenant_id", tc.ID()))
		return nil, s.checkIsolation(ctx, "sales", err)
	}

	items := make([]*dto.SaleResponse, 0, len(sales))
	for _, sale := range sales {
		items = append(items, dto.NewSaleResponse(sale))
	}
	return &dto.SaleListResponse{
		Items:      items,
		Pagination: dto.NewPagination(page, pageSize, total),
	}, nil
}

// Get implements SalesAppService. A sale of another tenant is not found.
func (s *salesAppServiceImpl) Get(ctx context.Context, id string) (*dto.SaleResponse, error) {
	tc, err := currentTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ScreenParameter(ctx, "id", id); err != nil {
		return nil, err
	}
	sale, err := s.saleRepo.FindByID(ctx, tc.ID(), id)
	if err != nil {
		return nil, s.checkIsolation(ctx, "sales", err)
	}
	return dto.NewSaleResponse(sale), nil
}

// Create implements SalesAppService. The stored row keeps the customer data as given; the
// audit snapshot carries the redacted form.
func (s *salesAppServiceImpl) Create(ctx context.Context, req *dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	tc, err := currentTenant(ctx)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &dto.CreateSaleRequest{}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "ARS"
	}
	sale := models.NewSale(tc.ID(), req.CustomerName, req.Description, req.Destination, currency,
		req.BaseAmount, req.CountryTax, req.IncomeWithholding, req.ProvincialWithholding)
	sale.CustomerEmail = req.CustomerEmail
	sale.CustomerPhone = req.CustomerPhone

	if err := s.saleRepo.Create(ctx, sale); err != nil {
		s.logger.Error(ctx, "Failed to create sale", err, logger.String("tenant_id", tc.ID()))
		return nil, s.checkIsolation(ctx, "sales", err)
	}

	event := models.NewSecurityEvent(tc.ID(), constants.AuditEventSaleCreated, constants.SeverityInfo,
		"sale created").
		WithActor(tc.ID(), "sales").
		WithTags("sales").
		WithSnapshots(nil, s.auditSnapshot(sale))
	s.record(ctx, event)

	s.logger.Info(ctx, "Sale created",
		logger.String("tenant_id", tc.ID()),
		logger.String("sale_id", sale.ID),
		logger.Float64("total_amount", sale.TotalAmount),
	)
	return dto.NewSaleResponse(sale), nil
}

// auditSnapshot is the sale with its customer fields redacted.
func (s *salesAppServiceImpl) auditSnapshot(sale *models.Sale) map[string]interface{} {
	redact := func(v string) string {
		if v == "" || s.redactor == nil {
			return v
		}
		return s.redactor.Redact(v).Text
	}
	return map[string]interface{}{
		"sale_id":        sale.ID,
		"customer_name":  redact(sale.CustomerName),
		"customer_email": redact(sale.CustomerEmail),
		"customer_phone": redact(sale.CustomerPhone),
		"description":    redact(sale.Description),
		"destination":    sale.Destination,
		"currency":       sale.Currency,
		"total_amount":   sale.TotalAmount,
		"status":         string(sale.Status),
	}
}
