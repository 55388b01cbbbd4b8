package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func scenarioItems() []Item {
	return []Item{
		{Qty: 3, UnitPrice: dec("10.00"), DiscountPct: decimal.Zero},
		{Qty: 1, UnitPrice: dec("50.00"), DiscountPct: dec("20")},
	}
}

func TestComputeScenario(t *testing.T) {
	summary := Compute(scenarioItems(), dec("15.00"), dec("8"))

	require.True(t, summary.Subtotal.Equal(dec("80")), "subtotal %s", summary.Subtotal)
	require.True(t, summary.TotalWithDiscount.Equal(dec("70")), "total %s", summary.TotalWithDiscount)
	require.True(t, summary.DiscountAmount.Equal(dec("10")))
	require.True(t, summary.RealDiscountPct.Equal(dec("12.5")), "real pct %s", summary.RealDiscountPct)
	require.True(t, summary.GrandTotal.Equal(dec("85")), "grand %s", summary.GrandTotal)
	require.True(t, summary.InvoiceAmount.Equal(dec("5.6")))
	require.Len(t, summary.Lines, 2)
	require.True(t, summary.Lines[1].Discount.Equal(dec("10")))
}

func TestComputeMatchesStandaloneFunctions(t *testing.T) {
	items := []Item{
		{Qty: 7, UnitPrice: dec("13.37"), DiscountPct: dec("3.5")},
		{Qty: 2, UnitPrice: dec("0.99"), DiscountPct: dec("0")},
		{Qty: 11, UnitPrice: dec("1999.90"), DiscountPct: dec("12.25")},
	}
	shipping := dec("42.10")
	summary := Compute(items, shipping, decimal.Zero)

	require.True(t, summary.Subtotal.Equal(Subtotal(items)))
	require.True(t, summary.TotalWithDiscount.Equal(TotalWithDiscount(items)))
	require.True(t, summary.DiscountAmount.Equal(TotalDiscountAmount(items)))
	require.True(t, summary.RealDiscountPct.Equal(RealDiscountPercentage(items)))
	require.True(t, summary.GrandTotal.Equal(GrandTotal(items, shipping)))
}

func TestInvoicePercentageIsNotPayable(t *testing.T) {
	items := scenarioItems()
	without := Compute(items, dec("15"), decimal.Zero)
	with := Compute(items, dec("15"), dec("10"))
	require.True(t, without.GrandTotal.Equal(with.GrandTotal))
	require.True(t, with.InvoiceAmount.Equal(dec("7")))
}

func TestRealDiscountPercentageEmpty(t *testing.T) {
	require.True(t, RealDiscountPercentage(nil).IsZero())
	require.True(t, Compute(nil, decimal.Zero, decimal.Zero).RealDiscountPct.IsZero())
}

func TestTotalWithDiscountNeverExceedsSubtotal(t *testing.T) {
	cases := []struct {
		name  string
		items []Item
		equal bool
	}{
		{name: "no discounts", items: []Item{{Qty: 2, UnitPrice: dec("5")}, {Qty: 1, UnitPrice: dec("9.99")}}, equal: true},
		{name: "one discount", items: []Item{{Qty: 2, UnitPrice: dec("5")}, {Qty: 1, UnitPrice: dec("9.99"), DiscountPct: dec("1")}}},
		{name: "full discount", items: []Item{{Qty: 4, UnitPrice: dec("25"), DiscountPct: dec("100")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := Subtotal(tc.items)
			total := TotalWithDiscount(tc.items)
			require.True(t, total.LessThanOrEqual(sub))
			require.Equal(t, tc.equal, total.Equal(sub))
		})
	}
}

func TestItemTotalLinearInQuantity(t *testing.T) {
	for k := 1; k <= 25; k++ {
		single := Item{Qty: k, UnitPrice: dec("17.33"), DiscountPct: dec("7.5")}
		double := single
		double.Qty = 2 * k
		require.True(t, ItemTotal(double).Equal(ItemTotal(single).Mul(decimal.NewFromInt(2))), "k=%d", k)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	items := scenarioItems()
	first := Compute(items, dec("15"), dec("3"))
	second := Compute(items, dec("15"), dec("3"))
	require.Equal(t, first, second)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "R$ 85,00", FormatMoney(dec("85"), ""))
	require.Equal(t, "R$ 1.234.567,89", FormatMoney(dec("1234567.891"), "R$"))
	require.Equal(t, "US$ 0,01", FormatMoney(dec("0.005"), "US$"))
	require.Equal(t, "R$ -12,30", FormatMoney(dec("-12.3"), "R$"))
	require.Equal(t, "12,50%", FormatPercent(dec("12.5")))
}
