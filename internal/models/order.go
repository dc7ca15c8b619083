package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypeBar      OrderType = "bar"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery, OrderTypeBar:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusOpen          OrderStatus = "open"
	OrderStatusSentToKitchen OrderStatus = "sent_to_kitchen"
	OrderStatusPreparing     OrderStatus = "preparing"
	OrderStatusReady         OrderStatus = "ready"
	OrderStatusServed        OrderStatus = "served"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusOpen,
	OrderStatusSentToKitchen,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusServed,
	OrderStatusPaid,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"size:32;uniqueIndex;not null" json:"order_number"`
	TableID     *uint       `gorm:"index" json:"table_id"`
	Table       *Table      `json:"table,omitempty"`
	OrderType   OrderType   `gorm:"size:20;not null" json:"order_type"`
	Status      OrderStatus `gorm:"size:20;index;not null" json:"status"`
	ServerID    uint        `gorm:"index;not null" json:"server_id"`

	CustomerName    string `gorm:"size:100" json:"customer_name"`
	CustomerPhone   string `gorm:"size:50" json:"customer_phone"`
	DeliveryAddress string `gorm:"size:255" json:"delivery_address"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`

	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountType   DiscountType    `gorm:"size:20" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax_amount"`
	TipAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tip_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	Priority int    `gorm:"not null;default:1" json:"priority"`
	Notes    string `gorm:"type:text" json:"notes"`

	// Version increments on every status change; updates are conditional on it.
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}
