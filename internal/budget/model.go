// Package budget owns price quotes ("budgets"), their item lists and status lifecycle.
package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/pricing"
	"github.com/noah-isme/backend-quotes/internal/schedule"
)

// Budget is a quote with its ordered item list.
type Budget struct {
	ID                 uuid.UUID       `json:"id"`
	ClientID           *uuid.UUID      `json:"clientId"`
	Notes              string          `json:"notes"`
	DiscountPct        decimal.Decimal `json:"discountPercentage"`
	InvoicePct         decimal.Decimal `json:"invoicePercentage"`
	PaymentMethodID    *uuid.UUID      `json:"paymentMethodId"`
	PaymentTypeID      *uuid.UUID      `json:"paymentTypeId"`
	ShippingOptionID   *uuid.UUID      `json:"shippingOptionId"`
	ShippingCost       decimal.Decimal `json:"shippingCost"`
	LocalDeliveryInfo  string          `json:"localDeliveryInfo"`
	Installments       int             `json:"installments"`
	CheckInstallments  int             `json:"checkInstallments"`
	CheckDueDates      []int           `json:"checkDueDates"`
	BoletoInstallments int             `json:"boletoInstallments"`
	BoletoDueDates     []int           `json:"boletoDueDates"`
	DestinationCEP     string          `json:"destinationCep"`
	Status             Status          `json:"status"`
	CreatedBy          string          `json:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Items              []Item          `json:"items"`
}

// Item is one line of a budget. Items belong to exactly one budget.
type Item struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"productId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	DiscountPct decimal.Decimal `json:"discountPercentage"`
	ProductCode string          `json:"productCode,omitempty"`
}

// NewItem builds an item whose discount is seeded from the budget's general discount.
// The general discount is never applied to totals in any other way.
func (b Budget) NewItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) Item {
	pid := productID
	return Item{
		ID:          uuid.New(),
		ProductID:   &pid,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		DiscountPct: b.DiscountPct,
	}
}

// PricingItems converts the item list for the pricing engine.
func (b Budget) PricingItems() []pricing.Item {
	out := make([]pricing.Item, len(b.Items))
	for i, it := range b.Items {
		out[i] = pricing.Item{Qty: it.Quantity, UnitPrice: it.UnitPrice, DiscountPct: it.DiscountPct}
	}
	return out
}

// Summary prices the budget.
func (b Budget) Summary() pricing.Summary {
	return pricing.Compute(b.PricingItems(), b.ShippingCost, b.InvoicePct)
}

// CheckPlan returns the check-like installment plan.
func (b Budget) CheckPlan() schedule.Plan {
	return schedule.Plan{Count: b.CheckInstallments, Offsets: b.CheckDueDates}
}

// BoletoPlan returns the invoice-like installment plan.
func (b Budget) BoletoPlan() schedule.Plan {
	return schedule.Plan{Count: b.BoletoInstallments, Offsets: b.BoletoDueDates}
}

// SetCheckInstallments changes the check installment count, resetting the offsets.
func (b *Budget) SetCheckInstallments(count int) {
	plan := b.CheckPlan().Resized(count)
	b.CheckInstallments, b.CheckDueDates = plan.Count, plan.Offsets
}

// SetBoletoInstallments changes the invoice installment count, resetting the offsets.
func (b *Budget) SetBoletoInstallments(count int) {
	plan := b.BoletoPlan().Resized(count)
	b.BoletoInstallments, b.BoletoDueDates = plan.Count, plan.Offsets
}

// fillOffsets completes offsets the caller left out. Omitted offsets are carried from
// prev and reset to zeros when the installment count differs from theirs.
func (b *Budget) fillOffsets(prev Budget) {
	if b.CheckDueDates == nil && b.CheckInstallments >= 0 {
		b.CheckDueDates = prev.CheckDueDates
		b.SetCheckInstallments(b.CheckInstallments)
	}
	if b.BoletoDueDates == nil && b.BoletoInstallments >= 0 {
		b.BoletoDueDates = prev.BoletoDueDates
		b.SetBoletoInstallments(b.BoletoInstallments)
	}
}

// DueDates holds the visible due dates of both installment families.
type DueDates struct {
	Anchor time.Time   `json:"anchor"`
	Check  []time.Time `json:"check"`
	Boleto []time.Time `json:"boleto"`
}

// DueDates computes due dates anchored at the creation time. Unset offsets are hidden.
func (b Budget) DueDates() DueDates {
	anchor := b.CreatedAt
	return DueDates{
		Anchor: anchor,
		Check:  schedule.Visible(anchor, b.CheckDueDates),
		Boleto: schedule.Visible(anchor, b.BoletoDueDates),
	}
}

// Client is the client collaborator record.
type Client struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Document string    `json:"document"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Address  string    `json:"address"`
}

// Product is the product collaborator record.
type Product struct {
	ID    uuid.UUID       `json:"id"`
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Option is a named payment method, payment type or shipping option.
type Option struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// PaymentOptions groups the selectable payment and shipping options.
type PaymentOptions struct {
	Methods  []Option `json:"methods"`
	Types    []Option `json:"types"`
	Shipping []Option `json:"shipping"`
}

// Quote is a budget with its references resolved. Missing references stay nil.
type Quote struct {
	Budget         Budget
	Client         *Client
	Products       map[uuid.UUID]Product
	PaymentMethod  *Option
	PaymentType    *Option
	ShippingOption *Option
	Summary        pricing.Summary
}

// ClientName returns the client's name or an empty string when it is unknown.
func (q Quote) ClientName() string {
	if q.Client == nil {
		return ""
	}
	return q.Client.Name
}
