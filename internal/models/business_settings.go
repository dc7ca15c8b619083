package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BusinessSettings is a single-row table; the first row wins.
type BusinessSettings struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:150;not null" json:"name"`
	Address        string          `gorm:"size:255" json:"address"`
	Phone          string          `gorm:"size:50" json:"phone"`
	Currency       string          `gorm:"size:10;not null" json:"currency"`
	TaxRatePercent decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate_percent"`
	ReceiptFooter  string          `gorm:"size:255" json:"receipt_footer"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
