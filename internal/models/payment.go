package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobile:
		return true
	}
	return false
}

// Payment is written once per paid order and never updated.
type Payment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	Method         PaymentMethod   `gorm:"size:20;index;not null" json:"method"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	TipAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tip_amount"`
	TenderedAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tendered_amount"`
	ChangeAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"change_amount"`
	Reference      string          `gorm:"size:100" json:"reference"`
	ProcessedBy    uint            `gorm:"index;not null" json:"processed_by"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}
