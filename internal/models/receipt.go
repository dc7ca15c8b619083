package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Receipt struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ReceiptNumber string          `gorm:"size:32;uniqueIndex;not null" json:"receipt_number"`
	OrderID       uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	PaymentID     uint            `gorm:"index;not null" json:"payment_id"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	// JSON snapshot of payment.ReceiptData
	Data      string    `gorm:"type:text" json:"data"`
	CreatedAt time.Time `json:"created_at"`
}
