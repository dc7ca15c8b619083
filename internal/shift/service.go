// Package shift opens and closes staff cash-handling sessions and reconciles
// sales at close.
package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/logger"
	"restoran-pos/internal/models"
	"restoran-pos/internal/money"
	"restoran-pos/internal/notify"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrShiftAlreadyActive = apperr.New(apperr.KindConflict, "shift_already_active", "staff member already has an active shift")
	ErrNoActiveShift      = apperr.New(apperr.KindNotFound, "no_active_shift", "no active shift")
	ErrShiftNotFound      = apperr.New(apperr.KindNotFound, "shift_not_found", "shift not found")
)

// Event is the payload of shift_started and shift_ended.
type Event struct {
	ShiftID        uint               `json:"shift_id"`
	StaffID        uint               `json:"staff_id"`
	Status         models.ShiftStatus `json:"status"`
	TotalSales     decimal.Decimal    `json:"total_sales"`
	TotalOrders    int                `json:"total_orders"`
	CashDifference decimal.Decimal    `json:"cash_difference"`
}

type EndInput struct {
	StaffID    uint
	EndingCash decimal.Decimal
	Notes      string
}

type Service struct {
	db    *gorm.DB
	bus   notify.Publisher
	audit audit.Recorder
	log   *logger.Logger

	Now func() time.Time
}

func NewService(db *gorm.DB, bus notify.Publisher, rec audit.Recorder, log *logger.Logger) *Service {
	return &Service{
		db:    db,
		bus:   bus,
		audit: rec,
		log:   log,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Start(ctx context.Context, staffID uint, startingCash decimal.Decimal) (*models.Shift, error) {
	if staffID == 0 {
		return nil, apperr.Validation("staff id is required")
	}
	if startingCash.IsNegative() {
		return nil, apperr.Validation("starting cash must not be negative")
	}

	sh := models.Shift{
		StaffID:       staffID,
		ActiveStaffID: &staffID,
		Status:        models.ShiftActive,
		StartTime:     s.Now(),
		StartingCash:  money.Round(startingCash),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.Shift{}).
			Where("staff_id = ? AND status = ?", staffID, models.ShiftActive).
			Count(&active).Error; err != nil {
			return fmt.Errorf("check active shift: %w", err)
		}
		if active > 0 {
			return ErrShiftAlreadyActive
		}
		return tx.Create(&sh).Error
	})
	if err != nil {
		if errors.Is(err, ErrShiftAlreadyActive) {
			return nil, err
		}
		// A concurrent start can pass the count and lose on the unique
		// active_staff_id index instead.
		if cur, curErr := s.Current(ctx, staffID); curErr == nil && cur != nil {
			return nil, ErrShiftAlreadyActive
		}
		return nil, fmt.Errorf("start shift: %w", err)
	}

	s.log.Infof("SHIFT", "staff %d started shift %d with %s", staffID, sh.ID, money.Format(sh.StartingCash))
	s.bus.Publish(notify.EventShiftStarted, eventOf(&sh))
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      staffID,
		EntityType:  "shift",
		EntityID:    sh.ID,
		Action:      models.AuditActionShiftStarted,
		Description: fmt.Sprintf("Shift started with %s", money.Format(sh.StartingCash)),
		Metadata:    map[string]any{"starting_cash": sh.StartingCash},
	})

	return &sh, nil
}

// End closes the caller's active shift. Aggregates cover paid orders served
// by the staff member that were created at or after the shift start and paid
// no later than the close time; later payments are never folded in.
func (s *Service) End(ctx context.Context, in EndInput) (*models.Shift, error) {
	if in.EndingCash.IsNegative() {
		return nil, apperr.Validation("ending cash must not be negative")
	}

	var sh models.Shift
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("staff_id = ? AND status = ?", in.StaffID, models.ShiftActive).
			First(&sh).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveShift
			}
			return fmt.Errorf("load active shift: %w", err)
		}

		closedAt := s.Now()
		rows, err := salesInWindow(tx, in.StaffID, sh.StartTime, closedAt)
		if err != nil {
			return err
		}
		sum := Summarize(rows, sh.StartingCash, money.Round(in.EndingCash))

		res := tx.Model(&models.Shift{}).
			Where("id = ? AND status = ?", sh.ID, models.ShiftActive).
			Updates(map[string]any{
				"status":          models.ShiftClosed,
				"active_staff_id": nil,
				"end_time":        closedAt,
				"ending_cash":     sum.EndingCash,
				"total_sales":     sum.TotalSales,
				"total_tips":      sum.TotalTips,
				"total_orders":    sum.TotalOrders,
				"cash_sales":      sum.CashSales,
				"card_sales":      sum.CardSales,
				"mobile_sales":    sum.MobileSales,
				"expected_cash":   sum.ExpectedCash,
				"cash_difference": sum.CashDifference,
				"notes":           in.Notes,
			})
		if res.Error != nil {
			return fmt.Errorf("close shift: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNoActiveShift
		}

		return tx.First(&sh, sh.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("SHIFT", "staff %d closed shift %d: %d orders, sales %s, difference %s",
		sh.StaffID, sh.ID, sh.TotalOrders, money.Format(sh.TotalSales), money.Format(sh.CashDifference))
	s.bus.Publish(notify.EventShiftEnded, eventOf(&sh))
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      sh.StaffID,
		EntityType:  "shift",
		EntityID:    sh.ID,
		Action:      models.AuditActionShiftEnded,
		Description: fmt.Sprintf("Shift closed, %d orders totalling %s", sh.TotalOrders, money.Format(sh.TotalSales)),
		Metadata: map[string]any{
			"ending_cash":     sh.EndingCash,
			"expected_cash":   sh.ExpectedCash,
			"cash_difference": sh.CashDifference,
		},
	})

	return &sh, nil
}

// Current returns the staff member's active shift, or nil.
func (s *Service) Current(ctx context.Context, staffID uint) (*models.Shift, error) {
	var shifts []models.Shift
	if err := s.db.WithContext(ctx).
		Where("staff_id = ? AND status = ?", staffID, models.ShiftActive).
		Limit(1).Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("current shift: %w", err)
	}
	if len(shifts) == 0 {
		return nil, nil
	}
	return &shifts[0], nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Shift, error) {
	var sh models.Shift
	if err := s.db.WithContext(ctx).First(&sh, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}
	return &sh, nil
}

// List returns shifts newest first; staffID 0 lists everyone.
func (s *Service) List(ctx context.Context, staffID uint, limit int) ([]models.Shift, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&models.Shift{})
	if staffID != 0 {
		q = q.Where("staff_id = ?", staffID)
	}
	var shifts []models.Shift
	if err := q.Order("start_time DESC").Limit(limit).Find(&shifts).Error; err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// Sales returns the orders counted by a shift. For an active shift the
// window is still open.
func (s *Service) Sales(ctx context.Context, sh *models.Shift) ([]SaleRow, error) {
	until := s.Now()
	if sh.EndTime != nil {
		until = *sh.EndTime
	}
	return salesInWindow(s.db.WithContext(ctx), sh.StaffID, sh.StartTime, until)
}

func eventOf(sh *models.Shift) Event {
	return Event{
		ShiftID:        sh.ID,
		StaffID:        sh.StaffID,
		Status:         sh.Status,
		TotalSales:     sh.TotalSales,
		TotalOrders:    sh.TotalOrders,
		CashDifference: sh.CashDifference,
	}
}
