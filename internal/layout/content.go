package layout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/pricing"
)

// Placeholders rendered for missing references.
const (
	NotAvailable    = "N/A"
	ProductNotFound = "product not found"
)

// Content is the read-only data laid out by the engine.
type Content struct {
	Number   string
	IssuedAt time.Time
	Client   Client
	Rows     []Row
	Summary  pricing.Summary
	Payment  Payment
	Notes    string
	Currency string
	Logo     *Image
}

// Client holds the client block. Empty fields render as NotAvailable.
type Client struct {
	Name     string
	Document string
	Email    string
	Phone    string
	Address  string
}

// Row is one line of the items table. An empty Product renders as ProductNotFound.
type Row struct {
	Code        string
	Product     string
	Qty         int
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	Total       decimal.Decimal
}

// Payment holds the payment and shipping block.
type Payment struct {
	Method          string
	Type            string
	Installments    int
	Shipping        string
	ShippingCost    decimal.Decimal
	LocalDelivery   string
	DestinationCEP  string
	CheckDueDates   string
	InvoiceDueDates string
}

// Image is a PNG logo with its pixel dimensions.
type Image struct {
	Name   string
	Data   []byte
	Width  int
	Height int
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
