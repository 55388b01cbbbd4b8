package layout

import (
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/pricing"
)

const cellPadding = 1.5

type column struct {
	key     docstyle.ColumnKey
	label   string
	x, w    float64
	numeric bool
}

// layoutColumns turns the visible column percentages into absolute positions. Widths are
// normalized over the visible columns so they always span the content width.
func layoutColumns(cfg docstyle.ColumnsConfig, left, width float64) []column {
	var visible []docstyle.KeyedColumn
	sum := 0.0
	for _, col := range cfg.Ordered() {
		if !col.Visible {
			continue
		}
		visible = append(visible, col)
		sum += col.Width
	}
	out := make([]column, 0, len(visible))
	x := left
	for _, col := range visible {
		share := 1 / float64(len(visible))
		if sum > 0 {
			share = col.Width / sum
		}
		w := width * share
		out = append(out, column{
			key:     col.Key,
			label:   col.Label,
			x:       x,
			w:       w,
			numeric: col.Key != docstyle.ColumnCode && col.Key != docstyle.ColumnProduct,
		})
		x += w
	}
	return out
}

// RowsPerPage is the number of table rows that fit below a header row in available
// millimetres. At least one row is always placed.
func RowsPerPage(available, headerHeight, rowHeight float64) int {
	if rowHeight <= 0 {
		return 1
	}
	n := int(math.Floor((available-headerHeight)/rowHeight + epsilon))
	return max(n, 1)
}

// TablePages returns how many pages n rows need at perPage rows per page.
func TablePages(n, perPage int) int {
	if n <= 0 {
		return 0
	}
	if perPage <= 0 {
		perPage = 1
	}
	return (n + perPage - 1) / perPage
}

func (e *Engine) renderTable(c Cursor) Cursor {
	rows := e.content.Rows
	if len(rows) == 0 || len(e.columns) == 0 {
		return c
	}
	st := e.style.Sections.ItemsTable
	tbl := e.style.Table
	pal := resolvePalette(e.style.Colors)

	lead := st.Padding.Top + e.titleHeight(st) + tbl.HeaderHeight + tbl.RowHeight
	if !c.Fits(lead, e.bottom) && c.Y > e.top+epsilon {
		c = e.breakPage(c)
	}

	y := e.drawTitle(c.Y+st.Padding.Top, st, pal)
	y = e.drawTableHeader(y, pal)
	for i, row := range rows {
		if !(Cursor{Page: c.Page, Y: y}).Fits(tbl.RowHeight, e.bottom) {
			c = e.breakPage(Cursor{Page: c.Page, Y: y})
			y = e.drawTableHeader(c.Y, pal)
		}
		e.drawTableRow(y, i, row, pal)
		y += tbl.RowHeight
	}
	return Cursor{Page: c.Page, Y: y + st.Padding.Bottom}
}

// drawTableHeader draws the header row at full opacity and returns the y below it.
func (e *Engine) drawTableHeader(y float64, pal palette) float64 {
	tbl := e.style.Table
	size := e.style.Fonts.TableHeader
	e.canvas.SetAlpha(1)
	e.canvas.SetFillColor(pal.headerFill)
	e.canvas.Rect(e.left, y, e.width, tbl.HeaderHeight, DrawFill)
	e.canvas.SetFont(FontBold, size)
	e.canvas.SetTextColor(pal.headerText)
	by := baseline(y, tbl.HeaderHeight, size)
	for _, col := range e.columns {
		e.cellText(col, by, col.label)
	}
	return y + tbl.HeaderHeight
}

func (e *Engine) drawTableRow(y float64, index int, row Row, pal palette) {
	tbl := e.style.Table
	size := e.style.Fonts.Table
	if tbl.Striped && index%2 == 1 {
		e.canvas.SetAlpha(tbl.StripeOpacity)
		e.canvas.SetFillColor(pal.stripe)
		e.canvas.Rect(e.left, y, e.width, tbl.RowHeight, DrawFill)
		e.canvas.SetAlpha(1)
	}
	if tbl.GridLines {
		e.canvas.SetDrawColor(pal.border)
		e.canvas.Line(e.left, y+tbl.RowHeight, e.left+e.width, y+tbl.RowHeight)
	}
	e.canvas.SetFont(FontRegular, size)
	e.canvas.SetTextColor(pal.text)
	by := baseline(y, tbl.RowHeight, size)
	for _, col := range e.columns {
		e.cellText(col, by, e.cellValue(col.key, row))
	}
}

func (e *Engine) cellValue(key docstyle.ColumnKey, row Row) string {
	switch key {
	case docstyle.ColumnCode:
		if strings.TrimSpace(row.Code) == "" {
			return "-"
		}
		return row.Code
	case docstyle.ColumnProduct:
		if strings.TrimSpace(row.Product) == "" {
			return ProductNotFound
		}
		return row.Product
	case docstyle.ColumnQuantity:
		return strconv.Itoa(row.Qty)
	case docstyle.ColumnUnitPrice:
		return e.money(row.UnitPrice)
	case docstyle.ColumnDiscount:
		return pricing.FormatPercent(row.DiscountPct)
	case docstyle.ColumnTotal:
		return e.money(row.Total)
	}
	return ""
}

func (e *Engine) cellText(col column, by float64, text string) {
	text = Truncate(e.canvas.TextWidth, text, col.w-2*cellPadding, "...")
	if col.numeric {
		e.canvas.Text(col.x+col.w-cellPadding-e.canvas.TextWidth(text), by, text)
		return
	}
	e.canvas.Text(col.x+cellPadding, by, text)
}
