package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Item describes a quote line used for pricing calculation.
type Item struct {
	Qty         int
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
}

// Line holds the computed values for a single quote line.
type Line struct {
	Gross    decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Summary aggregates computed pricing components for a quote.
type Summary struct {
	Lines             []Line
	Subtotal          decimal.Decimal
	TotalWithDiscount decimal.Decimal
	DiscountAmount    decimal.Decimal
	RealDiscountPct   decimal.Decimal
	Shipping          decimal.Decimal
	InvoicePct        decimal.Decimal
	InvoiceAmount     decimal.Decimal
	GrandTotal        decimal.Decimal
}

// ItemTotal returns quantity * unitPrice * (1 - discountPct/100).
func ItemTotal(it Item) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(it.DiscountPct.Div(hundred))
	return gross(it).Mul(factor)
}

// Subtotal sums quantity * unitPrice over all items, ignoring discounts.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(gross(it))
	}
	return total
}

// TotalWithDiscount sums ItemTotal over all items.
func TotalWithDiscount(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(ItemTotal(it))
	}
	return total
}

// TotalDiscountAmount is the difference between Subtotal and TotalWithDiscount.
func TotalDiscountAmount(items []Item) decimal.Decimal {
	return Subtotal(items).Sub(TotalWithDiscount(items))
}

// RealDiscountPercentage reports the effective discount over the subtotal. It is zero
// when the subtotal is zero.
func RealDiscountPercentage(items []Item) decimal.Decimal {
	subtotal := Subtotal(items)
	if subtotal.IsZero() {
		return decimal.Zero
	}
	return subtotal.Sub(TotalWithDiscount(items)).Div(subtotal).Mul(hundred)
}

// GrandTotal is the payable total. The invoice percentage is informational and is not
// part of it.
func GrandTotal(items []Item, shipping decimal.Decimal) decimal.Decimal {
	return TotalWithDiscount(items).Add(shipping)
}

// InvoiceAmount is the informational surcharge shown next to the total.
func InvoiceAmount(items []Item, invoicePct decimal.Decimal) decimal.Decimal {
	return TotalWithDiscount(items).Mul(invoicePct).Div(hundred)
}

// Compute calculates every quote figure in one pass over the provided inputs.
func Compute(items []Item, shipping, invoicePct decimal.Decimal) Summary {
	lines := make([]Line, 0, len(items))
	subtotal := decimal.Zero
	discounted := decimal.Zero
	for _, it := range items {
		g := gross(it)
		t := ItemTotal(it)
		lines = append(lines, Line{Gross: g, Discount: g.Sub(t), Total: t})
		subtotal = subtotal.Add(g)
		discounted = discounted.Add(t)
	}
	realPct := decimal.Zero
	if !subtotal.IsZero() {
		realPct = subtotal.Sub(discounted).Div(subtotal).Mul(hundred)
	}
	return Summary{
		Lines:             lines,
		Subtotal:          subtotal,
		TotalWithDiscount: discounted,
		DiscountAmount:    subtotal.Sub(discounted),
		RealDiscountPct:   realPct,
		Shipping:          shipping,
		InvoicePct:        invoicePct,
		InvoiceAmount:     discounted.Mul(invoicePct).Div(hundred),
		GrandTotal:        discounted.Add(shipping),
	}
}

func gross(it Item) decimal.Decimal {
	return decimal.NewFromInt(int64(it.Qty)).Mul(it.UnitPrice)
}
