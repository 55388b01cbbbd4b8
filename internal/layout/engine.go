package layout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/pricing"
	"github.com/noah-isme/backend-quotes/internal/schedule"
)

// Engine lays out one quote document. Sections must be rendered sequentially: the canvas
// always draws on its last page while the layout runs.
type Engine struct {
	canvas   Canvas
	style    docstyle.Config
	content  Content
	currency string

	pageW, pageH float64
	left, width  float64
	top, bottom  float64
	columns      []column

	warnings []error
}

// NewEngine prepares a layout of content on canvas using style. Column widths and page
// bounds are computed here once.
func NewEngine(canvas Canvas, style docstyle.Config, content Content) *Engine {
	w, h := canvas.PageSize()
	m := style.Page.Margins
	currency := strings.TrimSpace(content.Currency)
	if currency == "" {
		currency = pricing.DefaultCurrencySymbol
	}
	e := &Engine{
		canvas:   canvas,
		style:    style,
		content:  content,
		currency: currency,
		pageW:    w,
		pageH:    h,
		left:     m.Left,
		width:    w - m.Left - m.Right,
		top:      m.Top + style.HeaderHeight(),
		bottom:   h - m.Bottom - style.FooterHeight(),
	}
	e.columns = layoutColumns(style.Table.Columns, e.left, e.width)
	return e
}

// Begin opens the first page and returns the initial cursor.
func (e *Engine) Begin() Cursor {
	e.canvas.AddPage()
	e.drawPageHeader()
	return Cursor{Page: 0, Y: e.top}
}

// Render lays out every visible section in the configured order.
func (e *Engine) Render(c Cursor) Cursor {
	for _, section := range e.style.Layout.SectionOrder {
		if !e.style.Layout.Visible(section) {
			continue
		}
		c = e.RenderSection(c, section)
	}
	return c
}

// RenderSection draws one section at c and returns the cursor after it, including the
// inter-section spacing. A section with nothing to draw returns c unchanged.
func (e *Engine) RenderSection(c Cursor, section docstyle.Section) Cursor {
	var next Cursor
	switch section {
	case docstyle.SectionClientInfo:
		next = e.renderClient(c)
	case docstyle.SectionItemsTable:
		next = e.renderTable(c)
	case docstyle.SectionFinancialSummary:
		next = e.renderSummary(c)
	case docstyle.SectionPaymentInfo:
		next = e.renderPayment(c)
	case docstyle.SectionNotes:
		next = e.renderNotes(c)
	default:
		return c
	}
	if next == c {
		return c
	}
	return next.Down(e.style.Layout.SectionSpacing)
}

// Finish draws the footer of every page and returns the page count.
func (e *Engine) Finish() int {
	total := e.canvas.PageCount()
	for page := 1; page <= total; page++ {
		e.canvas.SetPage(page)
		e.drawFooter(page, total)
	}
	return total
}

// Warnings lists non-fatal problems met while drawing, such as an unusable logo.
func (e *Engine) Warnings() []error {
	return e.warnings
}

// ContentBounds returns the printable top and bottom of every page body.
func (e *Engine) ContentBounds() (float64, float64) {
	return e.top, e.bottom
}

// breakPage opens a new page, draws its page header and returns the cursor at its top.
func (e *Engine) breakPage(c Cursor) Cursor {
	e.canvas.AddPage()
	e.drawPageHeader()
	return c.NextPage(e.top)
}

func (e *Engine) drawPageHeader() {
	hdr := e.style.Header
	if hdr.Variant == docstyle.HeaderNone {
		return
	}
	pal := resolvePalette(e.style.Colors)
	fonts := e.style.Fonts
	top := e.style.Page.Margins.Top
	height := e.style.HeaderHeight()
	right := e.left + e.width
	x := e.left

	dateLine := ""
	if !e.content.IssuedAt.IsZero() {
		dateLine = "Date: " + e.content.IssuedAt.Format(schedule.DateLayout)
	}
	numberLine := ""
	if e.content.Number != "" {
		numberLine = "No. " + e.content.Number
	}

	switch hdr.Variant {
	case docstyle.HeaderFull:
		if hdr.ShowLogo && e.content.Logo != nil && e.content.Logo.Height > 0 {
			lh := min(hdr.LogoHeight, height-2)
			lw := lh * float64(e.content.Logo.Width) / float64(e.content.Logo.Height)
			if err := e.canvas.Image(e.content.Logo.Name, e.content.Logo.Data, x, top, lw, lh); err != nil {
				e.warnings = append(e.warnings, fmt.Errorf("logo: %w", err))
			} else {
				x += lw + 4
			}
		}
		y := top
		if hdr.CompanyName != "" {
			size := fonts.SectionTitle + 2
			lh := lineHeight(size, 1.2)
			e.canvas.SetFont(FontBold, size)
			e.canvas.SetTextColor(pal.primary)
			e.canvas.Text(x, baseline(y, lh, size), hdr.CompanyName)
			y += lh
		}
		small := lineHeight(fonts.Small, 1.3)
		e.canvas.SetFont(FontRegular, fonts.Small)
		e.canvas.SetTextColor(pal.muted)
		for _, info := range hdr.CompanyInfo {
			if y+small > top+height {
				break
			}
			e.canvas.Text(x, baseline(y, small, fonts.Small), info)
			y += small
		}

		titleH := lineHeight(fonts.Title, 1.2)
		e.canvas.SetFont(FontBold, fonts.Title)
		e.canvas.SetTextColor(pal.primary)
		e.canvas.Text(right-e.canvas.TextWidth(hdr.Title), baseline(top, titleH, fonts.Title), hdr.Title)
		ry := top + titleH
		e.canvas.SetFont(FontRegular, fonts.Small)
		e.canvas.SetTextColor(pal.muted)
		for _, s := range []string{numberLine, dateLine} {
			if s == "" {
				continue
			}
			e.canvas.Text(right-e.canvas.TextWidth(s), baseline(ry, small, fonts.Small), s)
			ry += small
		}
	case docstyle.HeaderCompact:
		lh := lineHeight(fonts.Body, 1.3)
		y := top + (height-lh)/2
		e.canvas.SetFont(FontBold, fonts.Body)
		e.canvas.SetTextColor(pal.primary)
		e.canvas.Text(x, baseline(y, lh, fonts.Body), hdr.CompanyName)
		label := strings.TrimSpace(strings.Join([]string{hdr.Title, numberLine, dateLine}, "  "))
		e.canvas.Text(right-e.canvas.TextWidth(label), baseline(y, lh, fonts.Body), label)
	}

	if hdr.ShowDivider {
		e.canvas.SetDrawColor(pal.primary)
		e.canvas.Line(e.left, top+height-1, right, top+height-1)
	}
}

func (e *Engine) drawFooter(page, total int) {
	ftr := e.style.Footer
	if ftr.Variant == docstyle.FooterNone {
		return
	}
	pal := resolvePalette(e.style.Colors)
	size := e.style.Fonts.Small
	y0 := e.pageH - e.style.Page.Margins.Bottom - ftr.Height
	right := e.left + e.width

	e.canvas.SetAlpha(1)
	e.canvas.SetDrawColor(pal.border)
	e.canvas.Line(e.left, y0, right, y0)
	e.canvas.SetFont(FontRegular, size)
	e.canvas.SetTextColor(pal.muted)
	y := baseline(y0, ftr.Height, size)

	if (ftr.Variant == docstyle.FooterText || ftr.Variant == docstyle.FooterBoth) && ftr.Text != "" {
		e.canvas.Text(e.left, y, Truncate(e.canvas.TextWidth, ftr.Text, e.width*0.75, "..."))
	}
	if ftr.Variant == docstyle.FooterPageNumbers || ftr.Variant == docstyle.FooterBoth {
		label := fmt.Sprintf("Page %d of %d", page, total)
		e.canvas.Text(right-e.canvas.TextWidth(label), y, label)
	}
}

func (e *Engine) money(v decimal.Decimal) string {
	return pricing.FormatMoney(v, e.currency)
}
