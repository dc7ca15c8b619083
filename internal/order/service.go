// Package order owns the order state machine and the table occupancy that
// goes with dine-in orders.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/catalog"
	"restoran-pos/internal/floor"
	"restoran-pos/internal/logger"
	"restoran-pos/internal/models"
	"restoran-pos/internal/money"
	"restoran-pos/internal/notify"
	"restoran-pos/internal/pricing"
	"restoran-pos/internal/sequence"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShiftGuard applies the shift policy before orders are created or paid.
type ShiftGuard interface {
	Check(ctx context.Context, staffID uint, op string) error
}

type ModifierInput struct {
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
}

type ItemInput struct {
	MenuItemID          uint            `json:"menu_item_id"`
	Quantity            int             `json:"quantity"`
	Modifiers           []ModifierInput `json:"modifiers"`
	SpecialInstructions string          `json:"special_instructions"`
}

type CreateInput struct {
	ServerID        uint
	OrderType       models.OrderType
	TableID         *uint
	Items           []ItemInput
	Discount        *pricing.Discount
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Notes           string
	SendToKitchen   bool
}

type TransitionInput struct {
	OrderID uint
	Target  models.OrderStatus
	ActorID uint
	Notes   string
}

// Event is the payload of order_created and order_status_updated. Consumers
// drop events whose Version is older than one already seen.
type Event struct {
	OrderID        uint               `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	OrderType      models.OrderType   `json:"order_type"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	Version        int                `json:"version"`
	TableID        *uint              `json:"table_id"`
	Priority       int                `json:"priority"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	ActorID        uint               `json:"actor_id"`
}

func EventOf(o *models.Order, previous models.OrderStatus, actorID uint) Event {
	return Event{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		OrderType:      o.OrderType,
		Status:         o.Status,
		PreviousStatus: previous,
		Version:        o.Version,
		TableID:        o.TableID,
		Priority:       o.Priority,
		TotalAmount:    o.TotalAmount,
		ActorID:        actorID,
	}
}

type Deps struct {
	DB       *gorm.DB
	Catalog  catalog.Reader
	Sequence sequence.Generator
	Bus      notify.Publisher
	Audit    audit.Recorder
	Shifts   ShiftGuard
	Log      *logger.Logger
}

type Service struct {
	db      *gorm.DB
	catalog catalog.Reader
	seq     sequence.Generator
	bus     notify.Publisher
	audit   audit.Recorder
	shifts  ShiftGuard
	log     *logger.Logger

	Now func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		db:      d.DB,
		catalog: d.Catalog,
		seq:     d.Sequence,
		bus:     d.Bus,
		audit:   d.Audit,
		shifts:  d.Shifts,
		log:     d.Log,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	snap := s.catalog.Snapshot()
	items, priced, err := buildItems(snap, in.Items)
	if err != nil {
		return nil, err
	}

	taxRate := snap.Settings.TaxRatePercent
	totals, err := pricing.ComputeTotals(priced, in.Discount, taxRate)
	if err != nil {
		return nil, err
	}

	if err := s.shifts.Check(ctx, in.ServerID, "order creation"); err != nil {
		return nil, err
	}

	now := s.Now()
	status := models.OrderStatusOpen
	if in.SendToKitchen {
		status = models.OrderStatusSentToKitchen
	}

	o := models.Order{
		TableID:         in.TableID,
		OrderType:       in.OrderType,
		Status:          status,
		ServerID:        in.ServerID,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Items:           items,
		Subtotal:        totals.Subtotal,
		DiscountAmount:  totals.DiscountAmount,
		TaxRate:         taxRate,
		TaxAmount:       totals.TaxAmount,
		TipAmount:       decimal.Zero,
		TotalAmount:     totals.Total,
		Priority:        pricing.Priority(totals.Total),
		Notes:           in.Notes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Discount != nil && in.Discount.Type != models.DiscountNone {
		o.DiscountType = in.Discount.Type
		o.DiscountValue = in.Discount.Value
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim the table first so a losing concurrent request fails before
		// it allocates a number.
		if o.TableID != nil {
			if err := floor.Occupy(ctx, tx, *o.TableID); err != nil {
				return err
			}
		}

		number, err := s.seq.Next(ctx, tx, sequence.OrderPrefix, now)
		if err != nil {
			return err
		}
		o.OrderNumber = number

		if err := tx.Create(&o).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if o.TableID != nil {
			return floor.Attach(ctx, tx, *o.TableID, o.ID)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			return nil, fmt.Errorf("create order: %w", err)
		}
		return nil, err
	}

	s.log.Infof("ORDER", "%s created by staff %d (%s, total %s)", o.OrderNumber, o.ServerID, o.OrderType, money.Format(o.TotalAmount))
	s.bus.Publish(notify.EventOrderCreated, EventOf(&o, "", in.ServerID))
	if o.TableID != nil {
		s.announceTable(ctx, *o.TableID)
	}
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      in.ServerID,
		EntityType:  "order",
		EntityID:    o.ID,
		Action:      models.AuditActionOrderCreated,
		Description: fmt.Sprintf("Order %s created", o.OrderNumber),
		Metadata: map[string]any{
			"order_type":   o.OrderType,
			"table_id":     o.TableID,
			"items":        len(o.Items),
			"total_amount": o.TotalAmount,
		},
	})

	return &o, nil
}

func (s *Service) Transition(ctx context.Context, in TransitionInput) (*models.Order, error) {
	if !in.Target.Valid() {
		return nil, apperr.Validation("unknown order status %q", in.Target)
	}

	var (
		previous models.OrderStatus
		tableID  *uint
		released bool
	)
	now := s.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("load order: %w", err)
		}
		previous = o.Status
		tableID = o.TableID

		if o.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrOrderAlreadyFinalized, o.OrderNumber, o.Status)
		}
		if !CanTransition(o.Status, in.Target) {
			return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, o.OrderNumber, o.Status, in.Target)
		}

		updates := map[string]any{
			"status":     in.Target,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		}
		if in.Notes != "" {
			updates["notes"] = in.Notes
		}
		if in.Target == models.OrderStatusCancelled {
			updates["cancelled_at"] = now
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s was changed concurrently, reload and retry", ErrInvalidTransition, o.OrderNumber)
		}

		if in.Target == models.OrderStatusCancelled && o.TableID != nil {
			var err error
			released, err = floor.Release(ctx, tx, *o.TableID, o.ID)
			return err
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			return nil, fmt.Errorf("transition order: %w", err)
		}
		return nil, err
	}

	o, err := s.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	s.log.Infof("ORDER", "%s %s -> %s by staff %d", o.OrderNumber, previous, o.Status, in.ActorID)
	s.bus.Publish(notify.EventOrderStatusUpdated, EventOf(o, previous, in.ActorID))
	if released && tableID != nil {
		s.announceTable(ctx, *tableID)
	}
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      in.ActorID,
		EntityType:  "order",
		EntityID:    o.ID,
		Action:      models.AuditActionOrderStatusChanged,
		Description: fmt.Sprintf("Order %s moved from %s to %s", o.OrderNumber, previous, o.Status),
		Metadata: map[string]any{
			"from":    previous,
			"to":      o.Status,
			"version": o.Version,
			"notes":   in.Notes,
		},
	})

	return o, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Preload("Items.Modifiers").
		Preload("Table").
		First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

type ListFilter struct {
	Statuses  []models.OrderStatus
	OrderType models.OrderType
	ServerID  uint
	TableID   uint
	// Kitchen displays want the largest, oldest tickets first.
	ByPriority bool
	Limit      int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{}).Preload("Items.Modifiers")
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.OrderType != "" {
		q = q.Where("order_type = ?", f.OrderType)
	}
	if f.ServerID != 0 {
		q = q.Where("server_id = ?", f.ServerID)
	}
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}

	if f.ByPriority {
		q = q.Order("priority DESC").Order("created_at ASC")
	} else {
		q = q.Order("created_at DESC")
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var orders []models.Order
	if err := q.Order("id ASC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) announceTable(ctx context.Context, tableID uint) {
	if err := floor.Announce(ctx, s.db, s.bus, tableID); err != nil {
		s.log.Warnf("ORDER", "table event not published: %v", err)
	}
}

func validateCreate(in *CreateInput) error {
	if in.ServerID == 0 {
		return apperr.Validation("server id is required")
	}
	if !in.OrderType.Valid() {
		return apperr.Validation("unknown order type %q", in.OrderType)
	}
	switch in.OrderType {
	case models.OrderTypeDineIn:
		if in.TableID == nil || *in.TableID == 0 {
			return apperr.Validation("dine-in orders require a table")
		}
	default:
		if in.TableID != nil {
			return apperr.Validation("only dine-in orders can be assigned a table")
		}
	}
	if in.OrderType == models.OrderTypeDelivery && strings.TrimSpace(in.DeliveryAddress) == "" {
		return apperr.Validation("delivery orders require an address")
	}
	return nil
}

// buildItems resolves names and prices from the menu snapshot.
func buildItems(snap *catalog.Snapshot, inputs []ItemInput) ([]models.OrderItem, []pricing.Item, error) {
	if len(inputs) == 0 {
		return nil, nil, apperr.Validation("order must have at least one item")
	}

	items := make([]models.OrderItem, 0, len(inputs))
	priced := make([]pricing.Item, 0, len(inputs))
	for i, in := range inputs {
		menuItem, ok := snap.MenuItem(in.MenuItemID)
		if !ok {
			return nil, nil, fmt.Errorf("%w: item %d references menu item %d", ErrUnknownMenuItem, i+1, in.MenuItemID)
		}
		if !menuItem.Available {
			return nil, nil, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, menuItem.Name)
		}

		p := pricing.Item{Quantity: in.Quantity, UnitPrice: menuItem.Price}
		mods := make([]models.OrderItemModifier, 0, len(in.Modifiers))
		for _, m := range in.Modifiers {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				return nil, nil, apperr.Validation("item %d: modifier name is required", i+1)
			}
			adj := money.Round(m.PriceAdjustment)
			p.Modifiers = append(p.Modifiers, pricing.Modifier{Name: name, PriceAdjustment: adj})
			mods = append(mods, models.OrderItemModifier{Name: name, PriceAdjustment: adj})
		}
		priced = append(priced, p)

		items = append(items, models.OrderItem{
			MenuItemID:          menuItem.ID,
			Name:                menuItem.Name,
			Quantity:            in.Quantity,
			UnitPrice:           menuItem.Price,
			LineTotal:           money.Round(p.LineTotal()),
			SpecialInstructions: in.SpecialInstructions,
			Modifiers:           mods,
		})
	}

	if err := pricing.ValidateItems(priced); err != nil {
		return nil, nil, err
	}
	return items, priced, nil
}
