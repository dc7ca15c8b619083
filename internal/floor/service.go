// Package floor manages dining tables and their occupancy. Occupy and Release
// run inside the caller's transaction so that order creation, cancellation
// and payment change table state atomically with the order row.
package floor

import (
	"context"
	"errors"
	"fmt"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/logger"
	"restoran-pos/internal/models"
	"restoran-pos/internal/notify"

	"gorm.io/gorm"
)

var (
	ErrTableNotFound    = apperr.New(apperr.KindNotFound, "table_not_found", "table not found")
	ErrTableUnavailable = apperr.New(apperr.KindConflict, "table_unavailable", "table is not available")
	ErrTableOccupied    = apperr.New(apperr.KindConflict, "table_occupied", "table is occupied by an open order")
	ErrTableExists      = apperr.New(apperr.KindConflict, "table_exists", "a table with this number already exists")
)

// occupiable lists the statuses a new dine-in order may claim.
var occupiable = []models.TableStatus{models.TableAvailable, models.TableReserved}

// StatusEvent is the payload of table_status_updated.
type StatusEvent struct {
	TableID uint               `json:"table_id"`
	Number  int                `json:"number"`
	Status  models.TableStatus `json:"status"`
	OrderID *uint              `json:"order_id"`
}

type Service struct {
	db  *gorm.DB
	bus notify.Publisher
	log *logger.Logger
}

func NewService(db *gorm.DB, bus notify.Publisher, log *logger.Logger) *Service {
	return &Service{db: db, bus: bus, log: log}
}

func (s *Service) List(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := s.db.WithContext(ctx).Order("number asc").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Table, error) {
	var t models.Table
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	return &t, nil
}

func (s *Service) Create(ctx context.Context, number, capacity int) (*models.Table, error) {
	if number <= 0 {
		return nil, apperr.Validation("table number must be positive")
	}
	if capacity <= 0 {
		return nil, apperr.Validation("capacity must be positive")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Table{}).Where("number = ?", number).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check table number: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %d", ErrTableExists, number)
	}

	t := models.Table{Number: number, Capacity: capacity, Status: models.TableAvailable}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &t, nil
}

// SetStatus is the manual floor-plan change (reserve, clean, maintenance,
// free). Occupancy is owned by orders, so occupied is neither a valid target
// nor a source.
func (s *Service) SetStatus(ctx context.Context, id uint, status models.TableStatus) (*models.Table, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown table status %q", status)
	}
	if status == models.TableOccupied {
		return nil, apperr.Validation("tables become occupied only through dine-in orders")
	}

	res := s.db.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND status <> ?", id, models.TableOccupied).
		Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("update table status: %w", res.Error)
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: table %d", ErrTableOccupied, t.Number)
	}

	s.Publish(*t)
	return t, nil
}

// Publish announces the table's current state.
func (s *Service) Publish(t models.Table) {
	s.bus.Publish(notify.EventTableStatusUpdated, statusEvent(t))
}

// Announce reads a table after a committed occupancy change and publishes
// its state.
func Announce(ctx context.Context, db *gorm.DB, bus notify.Publisher, tableID uint) error {
	var t models.Table
	if err := db.WithContext(ctx).First(&t, tableID).Error; err != nil {
		return fmt.Errorf("read table %d: %w", tableID, err)
	}
	bus.Publish(notify.EventTableStatusUpdated, statusEvent(t))
	return nil
}

func statusEvent(t models.Table) StatusEvent {
	return StatusEvent{
		TableID: t.ID,
		Number:  t.Number,
		Status:  t.Status,
		OrderID: t.CurrentOrderID,
	}
}

// Occupy claims an available or reserved table inside tx. The conditional
// UPDATE is the mutual-exclusion point for concurrent dine-in orders.
func Occupy(ctx context.Context, tx *gorm.DB, tableID uint) error {
	res := tx.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND status IN ?", tableID, occupiable).
		Update("status", models.TableOccupied)
	if res.Error != nil {
		return fmt.Errorf("occupy table: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var t models.Table
	if err := tx.WithContext(ctx).Select("id", "number", "status").First(&t, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTableNotFound
		}
		return fmt.Errorf("read table: %w", err)
	}
	return fmt.Errorf("%w: table %d is %s", ErrTableUnavailable, t.Number, t.Status)
}

// Attach records which order holds an occupied table.
func Attach(ctx context.Context, tx *gorm.DB, tableID, orderID uint) error {
	err := tx.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND status = ?", tableID, models.TableOccupied).
		Update("current_order_id", orderID).Error
	if err != nil {
		return fmt.Errorf("attach order to table: %w", err)
	}
	return nil
}

// Release frees the table only if orderID still holds it. It reports whether
// the table changed.
func Release(ctx context.Context, tx *gorm.DB, tableID, orderID uint) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.Table{}).
		Where("id = ? AND current_order_id = ?", tableID, orderID).
		Updates(map[string]any{
			"status":           models.TableAvailable,
			"current_order_id": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("release table: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
