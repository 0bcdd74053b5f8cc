package models

import "time"

// Product is the stored catalog row that backs FinancialRecord. It is tenant-scoped.
type Product struct {
	ID                string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	TenantID          string    `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	Description       string    `gorm:"type:text;not null" json:"description"`
	Destination       string    `gorm:"type:varchar(255);not null" json:"destination"`
	Currency          string    `gorm:"type:varchar(3);not null;default:'ARS'" json:"currency"`
	BasePrice         float64   `gorm:"not null" json:"base_price"`
	CountryTax        float64   `gorm:"not null;default:0" json:"country_tax"`
	IncomeWithholding float64   `gorm:"not null;default:0" json:"income_withholding"`
	TotalPrice        float64   `gorm:"not null" json:"total_price"`
	Available         bool      `gorm:"not null;default:true;index" json:"available"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName overrides the default table name.
func (Product) TableName() string { return "products" }

// OwnerTenantID returns the owning tenant for isolation checks.
func (p *Product) OwnerTenantID() string { return p.TenantID }

// FinancialRecord is verified pricing for one product. It is the only permissible source of
// monetary figures in assistant output and is never constructed from generated text.
type FinancialRecord struct {
	ProductID         string  `json:"product_id"`
	TenantID          string  `json:"-"`
	Description       string  `json:"description"`
	Destination       string  `json:"destination"`
	BasePrice         float64 `json:"base_price"`
	Currency          string  `json:"currency"`
	CountryTax        float64 `json:"country_tax"`
	IncomeWithholding float64 `json:"income_withholding"`
	TotalPrice        float64 `json:"total_price"`
	Available         bool    `json:"available"`
}

// NewFinancialRecord copies a stored product into a FinancialRecord.
func NewFinancialRecord(p *Product) *FinancialRecord {
	return &FinancialRecord{
		ProductID:         p.ID,
		TenantID:          p.TenantID,
		Description:       p.Description,
		Destination:       p.Destination,
		BasePrice:         p.BasePrice,
		Currency:          p.Currency,
		CountryTax:        p.CountryTax,
		IncomeWithholding: p.IncomeWithholding,
		TotalPrice:        p.TotalPrice,
		Available:         p.Available,
	}
}

// OwnerTenantID returns the owning tenant for isolation checks.
func (r *FinancialRecord) OwnerTenantID() string { return r.TenantID }

// Amounts returns every monetary figure the record vouches for.
func (r *FinancialRecord) Amounts() []float64 {
	return []float64{r.BasePrice, r.CountryTax, r.IncomeWithholding, r.TotalPrice}
}
