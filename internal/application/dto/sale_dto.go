package dto

import (
	"time"

	"github.com/turtacn/shieldgate/internal/domain/models"
)

// CreateSaleRequest is the body of POST /api/v1/sales.
type CreateSaleRequest struct {
	CustomerName          string  `json:"customer_name" validate:"required,max=255"`
	CustomerEmail         string  `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone         string  `json:"customer_phone" validate:"omitempty,max=64"`
	Description           string  `json:"description" validate:"required"`
	Destination           string  `json:"destination" validate:"max=255"`
	Currency              string  `json:"currency" validate:"omitempty,currency"`
	BaseAmount            float64 `json:"base_amount" validate:"gte=0"`
	CountryTax            float64 `json:"country_tax" validate:"gte=0"`
	IncomeWithholding     float64 `json:"income_withholding" validate:"gte=0"`
	ProvincialWithholding float64 `json:"provincial_withholding" validate:"gte=0"`
}

// ListSalesRequest holds the query parameters of GET /api/v1/sales.
type ListSalesRequest struct {
	Search   string `form:"search"`
	Status   string `form:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	Page     int    `form:"page" validate:"gte=0"`
	PageSize int    `form:"page_size" validate:"gte=0,lte=100"`
}

// SaleResponse is a sale as returned to its tenant.
type SaleResponse struct {
	ID                    string    `json:"id"`
	CustomerName          string    `json:"customer_name"`
	CustomerEmail         string    `json:"customer_email,omitempty"`
	CustomerPhone         string    `json:"customer_phone,omitempty"`
	Description           string    `json:"description"`
	Destination           string    `json:"destination"`
	Currency              string    `json:"currency"`
	BaseAmount            float64   `json:"base_amount"`
	CountryTax            float64   `json:"country_tax"`
	IncomeWithholding     float64   `json:"income_withholding"`
	ProvincialWithholding float64   `json:"provincial_withholding"`
	TotalAmount           float64   `json:"total_amount"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewSaleResponse converts a stored sale.
func NewSaleResponse(s *models.Sale) *SaleResponse {
	return &SaleResponse{
		ID:                    s.ID,
		CustomerName:          s.CustomerName,
		CustomerEmail:         s.CustomerEmail,
		CustomerPhone:         s.CustomerPhone,
		Description:           s.Description,
		Destination:           s.Destination,
		Currency:              s.Currency,
		BaseAmount:            s.BaseAmount,
		CountryTax:            s.CountryTax,
		IncomeWithholding:     s.IncomeWithholding,
		ProvincialWithholding: s.ProvincialWithholding,
		TotalAmount:           s.TotalAmount,
		Status:                string(s.Status),
		CreatedAt:             s.CreatedAt,
	}
}

// SaleListResponse is one page of sales.
type SaleListResponse struct {
	Items      []*SaleResponse    `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}
