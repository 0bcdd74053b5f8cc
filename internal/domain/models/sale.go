package models

import (
	"time"

	"github.com/google/uuid"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusConfirmed SaleStatus = "confirmed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Sale is a travel package sold by an agency (tenant).
type Sale struct {
	ID                    string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	TenantID              string     `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	CustomerName          string     `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail         string     `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	CustomerPhone         string     `gorm:"type:varchar(64)" json:"customer_phone,omitempty"`
	Description           string     `gorm:"type:text;not null" json:"description"`
	Destination           string     `gorm:"type:varchar(255)" json:"destination"`
	Currency              string     `gorm:"type:varchar(3);not null;default:'ARS'" json:"currency"`
	BaseAmount            float64    `gorm:"not null" json:"base_amount"`
	CountryTax            float64    `gorm:"not null;default:0" json:"country_tax"`
	IncomeWithholding     float64    `gorm:"not null;default:0" json:"income_withholding"`
	ProvincialWithholding float64    `gorm:"not null;default:0" json:"provincial_withholding"`
	TotalAmount           float64    `gorm:"not null" json:"total_amount"`
	Status                SaleStatus `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
}

// TableName overrides the default table name.
func (Sale) TableName() string { return "sales" }

// NewSale creates a pending sale and computes its total as the sum of the base amount and
// all taxes.
func NewSale(tenantID, customerName, description, destination, currency string, base, countryTax, income, provincial float64) *Sale {
	return &Sale{
		ID:                    uuid.NewString(),
		TenantID:              tenantID,
		CustomerName:          customerName,
		Description:           description,
		Destination:           destination,
		Currency:              currency,
		BaseAmount:            base,
		CountryTax:            countryTax,
		IncomeWithholding:     income,
		ProvincialWithholding: provincial,
		TotalAmount:           base + countryTax + income + provincial,
		Status:                SaleStatusPending,
		CreatedAt:             time.Now().UTC(),
	}
}

// OwnerTenantID returns the owning tenant for isolation checks.
func (s *Sale) OwnerTenantID() string { return s.TenantID }
