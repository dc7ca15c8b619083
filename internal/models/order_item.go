package models

import "github.com/shopspring/decimal"

type OrderItem struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	OrderID             uint                `gorm:"index;not null" json:"order_id"`
	MenuItemID          uint                `gorm:"index;not null" json:"menu_item_id"`
	Name                string              `gorm:"size:150" json:"name"`
	Quantity            int                 `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal           decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"line_total"`
	SpecialInstructions string              `gorm:"size:255" json:"special_instructions"`
	Modifiers           []OrderItemModifier `gorm:"constraint:OnDelete:CASCADE" json:"modifiers"`
}

type OrderItemModifier struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderItemID     uint            `gorm:"index;not null" json:"order_item_id"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	PriceAdjustment decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_adjustment"`
}
