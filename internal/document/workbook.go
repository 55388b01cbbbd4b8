package document

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/layout"
	"github.com/noah-isme/backend-quotes/internal/pricing"
	"github.com/noah-isme/backend-quotes/internal/schedule"
)

const sheetName = "Quote"

type workbook struct {
	f      *excelize.File
	row    int
	bold   int
	header int
	money  int
	pct    int
}

// RenderWorkbook writes the quote into a single-sheet spreadsheet: client block, the
// visible item columns, the financial summary, payment details and notes.
func RenderWorkbook(content layout.Content, style docstyle.Config) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	wb := &workbook{f: f, row: 1}
	if err := wb.styles(style.Colors); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(style.Header.Title + " " + content.Number)
	wb.set(1, title, wb.bold)
	wb.row++
	if style.Header.CompanyName != "" {
		wb.set(1, style.Header.CompanyName, 0)
		wb.row++
	}
	if !content.IssuedAt.IsZero() {
		wb.set(1, "Date", wb.bold)
		wb.set(2, content.IssuedAt.Format(schedule.DateLayout), 0)
		wb.row++
	}
	wb.row++

	for _, section := range style.Layout.SectionOrder {
		if !style.Layout.Visible(section) {
			continue
		}
		switch section {
		case docstyle.SectionClientInfo:
			wb.clientBlock(content.Client, style.Sections.ClientInfo.Title)
		case docstyle.SectionItemsTable:
			wb.itemsTable(content.Rows, style.Table.Columns)
		case docstyle.SectionFinancialSummary:
			wb.summaryBlock(content.Summary, style.Sections.FinancialSummary.Title)
		case docstyle.SectionPaymentInfo:
			wb.paymentBlock(content.Payment, style.Sections.PaymentInfo.Title)
		case docstyle.SectionNotes:
			wb.notesBlock(content.Notes, style.Sections.Notes.Title)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 22); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "C", "F", 14); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (wb *workbook) styles(colors docstyle.ColorConfig) error {
	var err error
	if wb.bold, err = wb.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return err
	}
	headerFill := strings.TrimPrefix(hexOrDefault(colors.TableHeaderBackground), "#")
	headerFont := strings.TrimPrefix(hexOrDefault(colors.TableHeaderText), "#")
	if wb.header, err = wb.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFont},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	}); err != nil {
		return err
	}
	if wb.money, err = wb.f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil {
		return err
	}
	pctFmt := `0.00"%"`
	wb.pct, err = wb.f.NewStyle(&excelize.Style{CustomNumFmt: &pctFmt})
	return err
}

// hexOrDefault normalizes a configured color to #RRGGBB, using gray when malformed.
func hexOrDefault(s string) string {
	c := layout.ResolveColor(s)
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (wb *workbook) set(col int, value any, style int) {
	cell, err := excelize.CoordinatesToCellName(col, wb.row)
	if err != nil {
		return
	}
	_ = wb.f.SetCellValue(sheetName, cell, value)
	if style != 0 {
		_ = wb.f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func (wb *workbook) title(text string) {
	wb.set(1, text, wb.bold)
	wb.row++
}

func (wb *workbook) pair(label string, value any, style int) {
	wb.set(1, label, 0)
	wb.set(2, value, style)
	wb.row++
}

func (wb *workbook) clientBlock(c layout.Client, title string) {
	wb.title(title)
	wb.pair("Client", orNA(c.Name), 0)
	wb.pair("Tax ID", orNA(c.Document), 0)
	wb.pair("Email", orNA(c.Email), 0)
	wb.pair("Phone", orNA(c.Phone), 0)
	wb.pair("Address", orNA(c.Address), 0)
	wb.row++
}

func (wb *workbook) itemsTable(rows []layout.Row, columns docstyle.ColumnsConfig) {
	if len(rows) == 0 {
		return
	}
	visible := make([]docstyle.KeyedColumn, 0, 6)
	for _, col := range columns.Ordered() {
		if col.Visible {
			visible = append(visible, col)
		}
	}
	for i, col := range visible {
		wb.set(i+1, col.Label, wb.header)
	}
	wb.row++
	for _, r := range rows {
		for i, col := range visible {
			value, style := wb.cell(col.Key, r)
			wb.set(i+1, value, style)
		}
		wb.row++
	}
	wb.row++
}

func (wb *workbook) cell(key docstyle.ColumnKey, r layout.Row) (any, int) {
	switch key {
	case docstyle.ColumnCode:
		return r.Code, 0
	case docstyle.ColumnProduct:
		if strings.TrimSpace(r.Product) == "" {
			return layout.ProductNotFound, 0
		}
		return r.Product, 0
	case docstyle.ColumnQuantity:
		return r.Qty, 0
	case docstyle.ColumnUnitPrice:
		return number(r.UnitPrice), wb.money
	case docstyle.ColumnDiscount:
		return number(r.DiscountPct), wb.pct
	case docstyle.ColumnTotal:
		return number(r.Total), wb.money
	}
	return "", 0
}

func (wb *workbook) summaryBlock(s pricing.Summary, title string) {
	wb.title(title)
	wb.pair("Subtotal", number(s.Subtotal), wb.money)
	wb.pair("Discount ("+pricing.FormatPercent(s.RealDiscountPct)+")", number(s.DiscountAmount.Neg()), wb.money)
	wb.pair("Total with discount", number(s.TotalWithDiscount), wb.money)
	wb.pair("Shipping", number(s.Shipping), wb.money)
	if s.InvoicePct.IsPositive() {
		wb.pair("Invoice "+pricing.FormatPercent(s.InvoicePct)+" (informational)", number(s.InvoiceAmount), wb.money)
	}
	wb.set(1, "Grand total", wb.bold)
	wb.set(2, number(s.GrandTotal), wb.money)
	wb.row += 2
}

func (wb *workbook) paymentBlock(p layout.Payment, title string) {
	wb.title(title)
	wb.pair("Payment method", orNA(p.Method), 0)
	wb.pair("Payment type", orNA(p.Type), 0)
	if p.Installments > 0 {
		wb.pair("Installments", p.Installments, 0)
	}
	wb.pair("Shipping", orNA(p.Shipping), 0)
	wb.pair("Shipping cost", number(p.ShippingCost), wb.money)
	for _, kv := range [][2]string{
		{"Local delivery", p.LocalDelivery},
		{"Destination CEP", p.DestinationCEP},
		{"Check due dates", p.CheckDueDates},
		{"Invoice due dates", p.InvoiceDueDates},
	} {
		if kv[1] != "" {
			wb.pair(kv[0], kv[1], 0)
		}
	}
	wb.row++
}

func (wb *workbook) notesBlock(notes, title string) {
	wb.title(title)
	wb.set(1, orNA(notes), 0)
	wb.row += 2
}

func number(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return layout.NotAvailable
	}
	return s
}
