// Package payment settles orders: it records the payment, marks the order
// paid, frees the table and issues the receipt in one transaction.
package payment

import (
	"context"
	"encoding/json"
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
	"restoran-pos/internal/order"
	"restoran-pos/internal/sequence"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAmountMismatch  = apperr.New(apperr.KindValidation, "amount_mismatch", "payment amount does not match the order total")
	ErrReceiptNotFound = apperr.New(apperr.KindNotFound, "receipt_not_found", "receipt not found")
)

type PayInput struct {
	OrderID uint
	Method  models.PaymentMethod
	Amount  decimal.Decimal
	Tip     decimal.Decimal
	// Tendered is the cash handed over; nil means exact change.
	Tendered  *decimal.Decimal
	Reference string
	ActorID   uint
}

type Result struct {
	Payment     models.Payment `json:"payment"`
	Receipt     models.Receipt `json:"receipt"`
	ReceiptData ReceiptData    `json:"receipt_data"`
}

// Event is the payload of payment_processed.
type Event struct {
	OrderID       uint                 `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	PaymentID     uint                 `json:"payment_id"`
	Method        models.PaymentMethod `json:"method"`
	Amount        decimal.Decimal      `json:"amount"`
	TipAmount     decimal.Decimal      `json:"tip_amount"`
	ReceiptNumber string               `json:"receipt_number"`
	Version       int                  `json:"version"`
	ActorID       uint                 `json:"actor_id"`
}

type Deps struct {
	DB       *gorm.DB
	Catalog  catalog.Reader
	Sequence sequence.Generator
	Bus      notify.Publisher
	Audit    audit.Recorder
	Shifts   order.ShiftGuard
	// Verifier is optional; without it card references are taken as given.
	Verifier CardVerifier
	Log      *logger.Logger
}

type Service struct {
	db       *gorm.DB
	catalog  catalog.Reader
	seq      sequence.Generator
	bus      notify.Publisher
	audit    audit.Recorder
	shifts   order.ShiftGuard
	verifier CardVerifier
	log      *logger.Logger

	Now func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		db:       d.DB,
		catalog:  d.Catalog,
		seq:      d.Sequence,
		bus:      d.Bus,
		audit:    d.Audit,
		shifts:   d.Shifts,
		verifier: d.Verifier,
		log:      d.Log,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

type tender struct {
	tendered decimal.Decimal
	change   decimal.Decimal
}

func validatePay(in *PayInput) error {
	if in.ActorID == 0 {
		return apperr.Validation("actor id is required")
	}
	if !in.Method.Valid() {
		return apperr.Validation("unknown payment method %q", in.Method)
	}
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Method != models.PaymentCash && in.Reference == "" {
		return apperr.Validation("%s payments require a reference", in.Method)
	}
	if in.Amount.IsNegative() {
		return apperr.Validation("amount must not be negative")
	}
	if in.Tip.IsNegative() {
		return apperr.Validation("tip must not be negative")
	}
	if !money.Exact(in.Amount) || !money.Exact(in.Tip) || (in.Tendered != nil && !money.Exact(*in.Tendered)) {
		return apperr.Validation("amounts must have at most %d decimal places", money.MinorUnits)
	}
	return nil
}

func computeTender(in PayInput) (tender, error) {
	due := money.Round(in.Amount).Add(money.Round(in.Tip))
	if in.Method != models.PaymentCash || in.Tendered == nil {
		return tender{tendered: due, change: decimal.Zero}, nil
	}
	given := money.Round(*in.Tendered)
	if given.LessThan(due) {
		return tender{}, apperr.Validation("tendered %s is less than the %s due", money.Format(given), money.Format(due))
	}
	return tender{tendered: given, change: given.Sub(due)}, nil
}

// Pay settles an order that is ready or served. A second call for the same
// order fails with ErrOrderAlreadyFinalized and writes nothing.
func (s *Service) Pay(ctx context.Context, in PayInput) (*Result, error) {
	if err := validatePay(&in); err != nil {
		return nil, err
	}

	var o models.Order
	if err := s.db.WithContext(ctx).First(&o, in.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if err := checkPayable(&o); err != nil {
		return nil, err
	}
	if !in.Amount.Equal(o.TotalAmount) {
		return nil, fmt.Errorf("%w: got %s, order %s totals %s",
			ErrAmountMismatch, money.Format(in.Amount), o.OrderNumber, money.Format(o.TotalAmount))
	}

	td, err := computeTender(in)
	if err != nil {
		return nil, err
	}

	if err := s.shifts.Check(ctx, in.ActorID, "payment"); err != nil {
		return nil, err
	}

	settings := s.catalog.Snapshot().Settings
	if in.Method == models.PaymentCard && s.verifier != nil {
		if err := s.verifier.VerifyCard(ctx, in.Reference, td.tendered, settings.Currency); err != nil {
			return nil, err
		}
	}

	now := s.Now()
	previous := o.Status
	var (
		res      Result
		released bool
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", o.ID, order.PayableStatuses()).
			Updates(map[string]any{
				"status":     models.OrderStatusPaid,
				"tip_amount": money.Round(in.Tip),
				"paid_at":    now,
				"updated_at": now,
				"version":    gorm.Expr("version + 1"),
			})
		if upd.Error != nil {
			return fmt.Errorf("mark order paid: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			// lost a race with another payment or a cancellation
			var cur models.Order
			if err := tx.Select("id", "order_number", "status").First(&cur, o.ID).Error; err != nil {
				return fmt.Errorf("reload order: %w", err)
			}
			return checkPayable(&cur)
		}

		res.Payment = models.Payment{
			OrderID:        o.ID,
			Method:         in.Method,
			Amount:         o.TotalAmount,
			TipAmount:      money.Round(in.Tip),
			TenderedAmount: td.tendered,
			ChangeAmount:   td.change,
			Reference:      in.Reference,
			ProcessedBy:    in.ActorID,
			CreatedAt:      now,
		}
		if err := tx.Create(&res.Payment).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		if o.TableID != nil {
			var err error
			if released, err = floor.Release(ctx, tx, *o.TableID, o.ID); err != nil {
				return err
			}
		}

		number, err := s.seq.Next(ctx, tx, sequence.ReceiptPrefix, now)
		if err != nil {
			return err
		}

		if err := tx.Preload("Items.Modifiers").Preload("Table").First(&o, o.ID).Error; err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		res.ReceiptData = buildReceiptData(number, &o, &res.Payment, settings, now)

		raw, err := json.Marshal(res.ReceiptData)
		if err != nil {
			return fmt.Errorf("encode receipt: %w", err)
		}
		res.Receipt = models.Receipt{
			ReceiptNumber: number,
			OrderID:       o.ID,
			PaymentID:     res.Payment.ID,
			TotalAmount:   o.TotalAmount,
			Data:          string(raw),
			CreatedAt:     now,
		}
		if err := tx.Create(&res.Receipt).Error; err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			return nil, fmt.Errorf("pay order: %w", err)
		}
		return nil, err
	}

	s.log.Infof("PAYMENT", "%s paid %s by %s (tip %s), receipt %s",
		o.OrderNumber, money.Format(res.Payment.Amount), res.Payment.Method, money.Format(res.Payment.TipAmount), res.Receipt.ReceiptNumber)

	s.bus.Publish(notify.EventPaymentProcessed, Event{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		PaymentID:     res.Payment.ID,
		Method:        res.Payment.Method,
		Amount:        res.Payment.Amount,
		TipAmount:     res.Payment.TipAmount,
		ReceiptNumber: res.Receipt.ReceiptNumber,
		Version:       o.Version,
		ActorID:       in.ActorID,
	})
	s.bus.Publish(notify.EventOrderStatusUpdated, order.EventOf(&o, previous, in.ActorID))
	if released {
		if err := floor.Announce(ctx, s.db, s.bus, *o.TableID); err != nil {
			s.log.Warnf("PAYMENT", "table event not published: %v", err)
		}
	}
	s.audit.Record(ctx, audit.LogOptions{
		UserID:      in.ActorID,
		EntityType:  "order",
		EntityID:    o.ID,
		Action:      models.AuditActionPaymentProcessed,
		Description: fmt.Sprintf("Order %s paid by %s, receipt %s", o.OrderNumber, res.Payment.Method, res.Receipt.ReceiptNumber),
		Metadata: map[string]any{
			"payment_id": res.Payment.ID,
			"amount":     res.Payment.Amount,
			"tip_amount": res.Payment.TipAmount,
			"change":     res.Payment.ChangeAmount,
			"method":     res.Payment.Method,
		},
	})

	return &res, nil
}

func checkPayable(o *models.Order) error {
	if o.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", order.ErrOrderAlreadyFinalized, o.OrderNumber, o.Status)
	}
	if !order.CanPay(o.Status) {
		return fmt.Errorf("%w: %s is %s, payment needs ready or served", order.ErrInvalidTransition, o.OrderNumber, o.Status)
	}
	return nil
}

// GetReceipt returns the stored receipt for a paid order.
func (s *Service) GetReceipt(ctx context.Context, orderID uint) (*models.Receipt, *ReceiptData, error) {
	var r models.Receipt
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrReceiptNotFound
		}
		return nil, nil, fmt.Errorf("get receipt: %w", err)
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
		return nil, nil, fmt.Errorf("decode receipt %s: %w", r.ReceiptNumber, err)
	}
	return &r, &data, nil
}
