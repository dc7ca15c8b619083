package shift

import (
	"fmt"
	"time"

	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleRow is one paid order joined with its payment.
type SaleRow struct {
	OrderID     uint
	OrderNumber string
	TotalAmount decimal.Decimal
	TipAmount   decimal.Decimal
	Method      models.PaymentMethod
	PaidAt      time.Time
}

type Summary struct {
	TotalSales     decimal.Decimal
	TotalTips      decimal.Decimal
	TotalOrders    int
	CashSales      decimal.Decimal
	CardSales      decimal.Decimal
	MobileSales    decimal.Decimal
	EndingCash     decimal.Decimal
	ExpectedCash   decimal.Decimal
	CashDifference decimal.Decimal
}

// Summarize reduces the window's sales. Cash tips stay in the drawer, so
// they count toward the expected cash.
func Summarize(rows []SaleRow, startingCash, endingCash decimal.Decimal) Summary {
	sum := Summary{
		TotalSales:  decimal.Zero,
		TotalTips:   decimal.Zero,
		CashSales:   decimal.Zero,
		CardSales:   decimal.Zero,
		MobileSales: decimal.Zero,
		EndingCash:  endingCash,
	}
	cashTips := decimal.Zero

	for _, r := range rows {
		sum.TotalSales = sum.TotalSales.Add(r.TotalAmount)
		sum.TotalTips = sum.TotalTips.Add(r.TipAmount)
		sum.TotalOrders++

		switch r.Method {
		case models.PaymentCash:
			sum.CashSales = sum.CashSales.Add(r.TotalAmount)
			cashTips = cashTips.Add(r.TipAmount)
		case models.PaymentCard:
			sum.CardSales = sum.CardSales.Add(r.TotalAmount)
		case models.PaymentMobile:
			sum.MobileSales = sum.MobileSales.Add(r.TotalAmount)
		}
	}

	sum.ExpectedCash = startingCash.Add(sum.CashSales).Add(cashTips)
	sum.CashDifference = endingCash.Sub(sum.ExpectedCash)
	return sum
}

func salesInWindow(db *gorm.DB, staffID uint, from, until time.Time) ([]SaleRow, error) {
	var rows []SaleRow
	err := db.Table("orders").
		Select("orders.id AS order_id, orders.order_number, orders.total_amount, orders.tip_amount, payments.method, payments.created_at AS paid_at").
		Joins("JOIN payments ON payments.order_id = orders.id").
		Where("orders.server_id = ? AND orders.status = ?", staffID, models.OrderStatusPaid).
		Where("orders.created_at >= ? AND payments.created_at <= ?", from, until).
		Order("payments.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate shift sales: %w", err)
	}
	return rows, nil
}
