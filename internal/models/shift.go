package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftActive ShiftStatus = "active"
	ShiftClosed ShiftStatus = "closed"
)

// Shift is a staff member's cash-handling session. Closed shifts are never
// modified again.
type Shift struct {
	ID      uint        `gorm:"primaryKey" json:"id"`
	StaffID uint        `gorm:"index;not null" json:"staff_id"`
	Status  ShiftStatus `gorm:"size:20;index;not null" json:"status"`
	// ActiveStaffID mirrors StaffID while the shift is active and is NULL once
	// closed. Its unique index allows one active shift per staff member on
	// every driver.
	ActiveStaffID *uint `gorm:"uniqueIndex" json:"-"`

	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	StartingCash decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"starting_cash"`
	EndingCash   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"ending_cash"`

	TotalSales  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_sales"`
	TotalTips   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_tips"`
	TotalOrders int             `gorm:"not null;default:0" json:"total_orders"`
	CashSales   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cash_sales"`
	CardSales   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"card_sales"`
	MobileSales decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"mobile_sales"`

	ExpectedCash   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"expected_cash"`
	CashDifference decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cash_difference"`

	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
