package layout

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/pricing"
)

func paginationStyle() docstyle.Config {
	cfg := docstyle.Defaults()
	cfg.Page.Margins.Top = 10
	cfg.Page.Margins.Bottom = 10
	cfg.Header.Variant = docstyle.HeaderNone
	cfg.Footer.Variant = docstyle.FooterNone
	cfg.Layout.SectionOrder = []docstyle.Section{docstyle.SectionItemsTable}
	cfg.Sections.ItemsTable.ShowTitle = false
	cfg.Sections.ItemsTable.Padding = docstyle.Box{}
	cfg.Table.HeaderHeight = 20
	cfg.Table.RowHeight = 20
	return cfg
}

func rows(n int) []Row {
	out := make([]Row, n)
	for i := range out {
		out[i] = Row{
			Code:        fmt.Sprintf("C%02d", i+1),
			Product:     fmt.Sprintf("Item %02d", i+1),
			Qty:         1,
			UnitPrice:   decimal.NewFromInt(10),
			DiscountPct: decimal.Zero,
			Total:       decimal.NewFromInt(10),
		}
	}
	return out
}

func render(t *testing.T, style docstyle.Config, content Content) *Recorder {
	t.Helper()
	rec := NewRecorder()
	engine := NewEngine(rec, style, content)
	engine.Render(engine.Begin())
	engine.Finish()
	return rec
}

func sampleContent() Content {
	items := []pricing.Item{
		{Qty: 3, UnitPrice: decimal.RequireFromString("10.00"), DiscountPct: decimal.Zero},
		{Qty: 1, UnitPrice: decimal.RequireFromString("50.00"), DiscountPct: decimal.NewFromInt(20)},
	}
	summary := pricing.Compute(items, decimal.RequireFromString("15.00"), decimal.Zero)
	return Content{
		Number:   "Q-0001",
		IssuedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Client:   Client{Name: "ACME Ltda", Document: "12.345.678/0001-90", Email: "buy@acme.test", Phone: "+55 11 5555-0000", Address: "Rua A, 1"},
		Rows: []Row{
			{Code: "P1", Product: "Widget", Qty: 3, UnitPrice: items[0].UnitPrice, DiscountPct: items[0].DiscountPct, Total: summary.Lines[0].Total},
			{Code: "P2", Product: "Gadget", Qty: 1, UnitPrice: items[1].UnitPrice, DiscountPct: items[1].DiscountPct, Total: summary.Lines[1].Total},
		},
		Summary:  summary,
		Payment:  Payment{Method: "Boleto", Type: "Installments", Installments: 2, Shipping: "Carrier", ShippingCost: summary.Shipping},
		Notes:    "Valid for 15 days.",
		Currency: "R$",
	}
}

func TestTablePaginationReplaysHeader(t *testing.T) {
	style := paginationStyle()
	rec := render(t, style, Content{Rows: rows(47)})

	require.Equal(t, 4, rec.PageCount())
	require.Equal(t, 12, RowsPerPage(297-20, 20, 20))
	require.Equal(t, 4, TablePages(47, 12))

	headers := rec.Find("Product")
	require.Len(t, headers, 4)
	for i, op := range headers {
		require.Equal(t, i+1, op.Page)
		require.InDelta(t, headers[0].Y, op.Y, 1e-9)
		require.Equal(t, 1.0, op.Alpha)
	}

	require.Len(t, rec.Find("Item 12"), 1)
	require.Equal(t, 1, rec.Find("Item 12")[0].Page)
	require.Equal(t, 2, rec.Find("Item 13")[0].Page)
	require.Equal(t, 4, rec.Find("Item 47")[0].Page)

	for page := 2; page <= 4; page++ {
		for _, op := range rec.Ops {
			if op.Page == page && op.Kind == "alpha" {
				require.Equal(t, 1.0, op.Alpha, "first alpha on page %d", page)
				break
			}
		}
	}
}

func TestTableFitsExactlyOnePage(t *testing.T) {
	rec := render(t, paginationStyle(), Content{Rows: rows(12)})
	require.Equal(t, 1, rec.PageCount())

	rec = render(t, paginationStyle(), Content{Rows: rows(13)})
	require.Equal(t, 2, rec.PageCount())
	require.Len(t, rec.Find("Product"), 2)
}

func TestZeroItemsStillRendersOtherSections(t *testing.T) {
	content := sampleContent()
	content.Rows = nil
	rec := render(t, docstyle.Defaults(), content)

	require.Equal(t, 1, rec.PageCount())
	require.Empty(t, rec.Find("Product"))
	require.NotEmpty(t, rec.Find("ACME Ltda"))
	require.NotEmpty(t, rec.Find("Grand total"))
	require.NotEmpty(t, rec.Find("Boleto"))
	require.NotEmpty(t, rec.Find("Valid for 15 days."))
}

func TestMissingProductUsesPlaceholder(t *testing.T) {
	content := sampleContent()
	content.Rows[1].Product = ""
	rec := render(t, docstyle.Defaults(), content)

	require.Len(t, rec.Find(ProductNotFound), 1)
	require.NotEmpty(t, rec.Find("Widget"))
}

func TestMissingClientRendersPlaceholders(t *testing.T) {
	content := sampleContent()
	content.Client = Client{}
	rec := render(t, docstyle.Defaults(), content)

	require.Len(t, rec.Find(NotAvailable), 5)
	require.NotEmpty(t, rec.Find("Client"))
}

func TestSummaryFigures(t *testing.T) {
	rec := render(t, docstyle.Defaults(), sampleContent())

	require.NotEmpty(t, rec.Find("R$ 80,00"))
	require.NotEmpty(t, rec.Find("R$ 70,00"))
	require.NotEmpty(t, rec.Find("R$ 85,00"))
	require.NotEmpty(t, rec.Find("Discount (12,50%)"))
	require.Empty(t, rec.Find("Invoice 0,00% (informational)"))
}

func TestHiddenSectionsAndOrder(t *testing.T) {
	style := docstyle.Defaults()
	style.Layout.Show[docstyle.SectionNotes] = false
	rec := render(t, style, sampleContent())
	require.Empty(t, rec.Find("Notes"))
	require.Empty(t, rec.Find("Valid for 15 days."))

	style = docstyle.Defaults()
	style.Layout.SectionOrder = []docstyle.Section{docstyle.SectionNotes, docstyle.SectionClientInfo}
	rec = render(t, style, sampleContent())
	notes := rec.Find("Notes")
	client := rec.Find("ACME Ltda")
	require.Len(t, notes, 1)
	require.Len(t, client, 1)
	require.Less(t, notes[0].Y, client[0].Y)
	require.Empty(t, rec.Find("Grand total"))
}

func TestMalformedColorFallsBackToGray(t *testing.T) {
	require.Equal(t, Gray, ResolveColor("banana"))
	require.Equal(t, Gray, ResolveColor("#12345"))
	require.Equal(t, RGB{R: 31, G: 78, B: 121}, ResolveColor("#1F4E79"))
	require.Equal(t, RGB{R: 255, G: 255, B: 255}, ResolveColor("fff"))

	style := docstyle.Defaults()
	style.Colors.Primary = "banana"
	rec := render(t, style, sampleContent())
	titles := rec.Find("Financial summary")
	require.Len(t, titles, 1)
	require.Equal(t, Gray, titles[0].Color)
}

func TestLongNotesSpanPages(t *testing.T) {
	content := sampleContent()
	content.Notes = strings.Repeat("Delivery terms apply.\n", 150)
	rec := render(t, docstyle.Defaults(), content)

	pages := rec.PageCount()
	require.Greater(t, pages, 1)
	require.Len(t, rec.Find("Delivery terms apply."), 150)
	for page := 1; page <= pages; page++ {
		require.Len(t, rec.Find(fmt.Sprintf("Page %d of %d", page, pages)), 1)
	}
	for _, op := range rec.Find("Delivery terms apply.") {
		require.LessOrEqual(t, op.Y, 297-15-10.0)
	}
}

func TestRenderSectionAdvancesCursor(t *testing.T) {
	rec := NewRecorder()
	style := docstyle.Defaults()
	engine := NewEngine(rec, style, sampleContent())
	start := engine.Begin()
	top, _ := engine.ContentBounds()
	require.Equal(t, Cursor{Page: 0, Y: top}, start)

	next := engine.RenderSection(start, docstyle.SectionClientInfo)
	require.Equal(t, 0, next.Page)
	require.Greater(t, next.Y, start.Y)
	require.Equal(t, Cursor{Page: 0, Y: top}, start)

	moved := start.Down(5)
	require.Equal(t, top+5, moved.Y)
	require.Equal(t, top, start.Y)
}

func TestWrapText(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }
	require.Equal(t, []string{"aaa bbb", "ccc"}, WrapText(measure, "aaa bbb ccc", 7))
	require.Equal(t, []string{"abcd", "efgh", "ij"}, WrapText(measure, "abcdefghij", 4))
	require.Equal(t, []string{"one", "", "two"}, WrapText(measure, "one\n\ntwo", 10))
	require.Equal(t, "abc...", Truncate(measure, "abcdefghij", 6, "..."))
}

func TestPDFCanvasProducesDocument(t *testing.T) {
	style := docstyle.Defaults()
	canvas := NewPDFCanvas(style.Page)
	engine := NewEngine(canvas, style, sampleContent())
	engine.Render(engine.Begin())
	require.Equal(t, 1, engine.Finish())

	out, err := canvas.Bytes()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
