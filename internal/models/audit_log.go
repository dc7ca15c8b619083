package models

import "time"

type AuditAction string

const (
	AuditActionLogin              AuditAction = "login"
	AuditActionOrderCreated       AuditAction = "order_created"
	AuditActionOrderStatusChanged AuditAction = "order_status_changed"
	AuditActionPaymentProcessed   AuditAction = "payment_processed"
	AuditActionShiftStarted       AuditAction = "shift_started"
	AuditActionShiftEnded         AuditAction = "shift_ended"
)

// AuditLog is append-only; nothing updates or deletes rows.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	UserID   uint   `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	// "order", "payment", "shift", "user"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:30;index" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	Metadata string `gorm:"type:text" json:"metadata"`
}
