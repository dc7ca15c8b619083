package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:150;not null" json:"name"`
	Category  string          `gorm:"size:100;index" json:"category"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Available bool            `gorm:"not null;default:true" json:"available"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
