package models

import "time"

type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableCleaning    TableStatus = "cleaning"
	TableMaintenance TableStatus = "maintenance"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableCleaning, TableMaintenance:
		return true
	}
	return false
}

// Table is a seating unit on the floor plan. CurrentOrderID is set only while
// Status is occupied.
type Table struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Number         int         `gorm:"uniqueIndex;not null" json:"number"`
	Capacity       int         `gorm:"not null" json:"capacity"`
	Status         TableStatus `gorm:"size:20;index;not null;default:available" json:"status"`
	CurrentOrderID *uint       `json:"current_order_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
