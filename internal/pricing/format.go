package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "R$"

// FormatMoney renders a value as "R$ 1.234,56". Rounding to two places happens here and
// nowhere else.
func FormatMoney(value decimal.Decimal, symbol string) string {
	if strings.TrimSpace(symbol) == "" {
		symbol = DefaultCurrencySymbol
	}
	return symbol + " " + formatGrouped(value.Round(2), 2)
}

// FormatPercent renders a percentage with two decimals, e.g. "12,50%".
func FormatPercent(value decimal.Decimal) string {
	return formatGrouped(value.Round(2), 2) + "%"
}

func formatGrouped(value decimal.Decimal, places int32) string {
	negative := value.IsNegative()
	raw := value.Abs().StringFixed(places)
	intPart, fracPart := raw, ""
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		intPart, fracPart = raw[:idx], raw[idx+1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte('.')
		b.WriteString(intPart[i : i+3])
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}
