package payment

import (
	"time"

	"restoran-pos/internal/catalog"
	"restoran-pos/internal/models"

	"github.com/shopspring/decimal"
)

type ReceiptModifier struct {
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
}

type ReceiptLine struct {
	Name                string            `json:"name"`
	Quantity            int               `json:"quantity"`
	UnitPrice           decimal.Decimal   `json:"unit_price"`
	LineTotal           decimal.Decimal   `json:"line_total"`
	Modifiers           []ReceiptModifier `json:"modifiers,omitempty"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
}

// ReceiptData is the immutable snapshot stored with each receipt. Rendering
// it is left to clients.
type ReceiptData struct {
	ReceiptNumber   string `json:"receipt_number"`
	BusinessName    string `json:"business_name"`
	BusinessAddress string `json:"business_address,omitempty"`
	BusinessPhone   string `json:"business_phone,omitempty"`
	Currency        string `json:"currency"`

	OrderNumber string           `json:"order_number"`
	OrderType   models.OrderType `json:"order_type"`
	TableNumber *int             `json:"table_number,omitempty"`
	ServerID    uint             `json:"server_id"`

	Lines []ReceiptLine `json:"lines"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TipAmount      decimal.Decimal `json:"tip_amount"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`

	PaymentMethod  models.PaymentMethod `json:"payment_method"`
	Reference      string               `json:"reference,omitempty"`
	TenderedAmount decimal.Decimal      `json:"tendered_amount"`
	ChangeAmount   decimal.Decimal      `json:"change_amount"`

	Footer   string    `json:"footer"`
	IssuedAt time.Time `json:"issued_at"`
}

func buildReceiptData(number string, o *models.Order, p *models.Payment, settings catalog.Settings, at time.Time) ReceiptData {
	data := ReceiptData{
		ReceiptNumber:   number,
		BusinessName:    settings.Name,
		BusinessAddress: settings.Address,
		BusinessPhone:   settings.Phone,
		Currency:        settings.Currency,
		OrderNumber:     o.OrderNumber,
		OrderType:       o.OrderType,
		ServerID:        o.ServerID,
		Lines:           make([]ReceiptLine, 0, len(o.Items)),
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		TaxRate:         o.TaxRate,
		TaxAmount:       o.TaxAmount,
		TipAmount:       p.TipAmount,
		Total:           o.TotalAmount,
		AmountPaid:      p.Amount.Add(p.TipAmount),
		PaymentMethod:   p.Method,
		Reference:       p.Reference,
		TenderedAmount:  p.TenderedAmount,
		ChangeAmount:    p.ChangeAmount,
		Footer:          settings.ReceiptFooter,
		IssuedAt:        at,
	}
	if o.Table != nil {
		n := o.Table.Number
		data.TableNumber = &n
	}

	for _, it := range o.Items {
		line := ReceiptLine{
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			LineTotal:           it.LineTotal,
			SpecialInstructions: it.SpecialInstructions,
		}
		for _, m := range it.Modifiers {
			line.Modifiers = append(line.Modifiers, ReceiptModifier{Name: m.Name, PriceAdjustment: m.PriceAdjustment})
		}
		data.Lines = append(data.Lines, line)
	}
	return data
}
