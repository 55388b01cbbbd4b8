package budget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/discount"
)

// MaxOffsetDays bounds an installment due-date offset.
const MaxOffsetDays = 3650

// FieldError is one rejection reason.
type FieldError struct {
	Field    string              `json:"field"`
	Message  string              `json:"message"`
	Discount *discount.Rejection `json:"-"`
}

// ValidationError lists every rejection found on a budget. Values are never clamped.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "budget: invalid"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "budget: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) addDiscount(field string, err error) {
	var rej *discount.Rejection
	if errors.As(err, &rej) {
		e.Fields = append(e.Fields, FieldError{Field: field, Message: rej.Message, Discount: rej})
		return
	}
	e.add(field, err.Error())
}

var hundred = decimal.NewFromInt(100)

// Validate checks the budget against the data model invariants and the actor's discount
// policy. A zero discount is accepted for every role.
func (b Budget) Validate(policy discount.Policy) error {
	verr := &ValidationError{}

	if b.ClientID == nil {
		verr.add("clientId", "client is required")
	}
	if b.PaymentMethodID == nil {
		verr.add("paymentMethodId", "payment method is required")
	}
	if !b.DiscountPct.IsZero() {
		if err := policy.CheckGeneral(b.DiscountPct); err != nil {
			verr.addDiscount("discountPercentage", err)
		}
	}
	if b.InvoicePct.IsNegative() || b.InvoicePct.GreaterThan(hundred) {
		verr.add("invoicePercentage", "invoice percentage must be between 0 and 100")
	}
	if b.ShippingCost.IsNegative() {
		verr.add("shippingCost", "shipping cost cannot be negative")
	}
	if b.Installments < 0 {
		verr.add("installments", "installments cannot be negative")
	}
	validatePlan(verr, "checkDueDates", b.CheckInstallments, b.CheckDueDates)
	validatePlan(verr, "boletoDueDates", b.BoletoInstallments, b.BoletoDueDates)
	if b.Status != "" && !b.Status.Valid() {
		verr.add("status", fmt.Sprintf("unknown status %q", b.Status))
	}

	for i, it := range b.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if it.ProductID == nil {
			verr.add(prefix+"productId", "product is required")
		}
		if it.Quantity < 1 {
			verr.add(prefix+"quantity", "quantity must be at least 1")
		}
		if it.UnitPrice.IsNegative() {
			verr.add(prefix+"unitPrice", "unit price cannot be negative")
		}
		if !it.DiscountPct.IsZero() {
			if err := policy.CheckIndividual(it.DiscountPct); err != nil {
				verr.addDiscount(prefix+"discountPercentage", err)
			}
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func validatePlan(verr *ValidationError, field string, count int, offsets []int) {
	if count < 0 {
		verr.add(field, "installment count cannot be negative")
		return
	}
	if len(offsets) != count {
		verr.add(field, fmt.Sprintf("expected %d offsets, got %d", count, len(offsets)))
	}
	for i, off := range offsets {
		switch {
		case off < 0:
			verr.add(fmt.Sprintf("%s[%d]", field, i), "offset cannot be negative")
		case off > MaxOffsetDays:
			verr.add(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("offset cannot exceed %d days", MaxOffsetDays))
		}
	}
}
