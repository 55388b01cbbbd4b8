package layout

import (
	"strconv"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/pricing"
)

// entry is a label/value pair of a block section.
type entry struct {
	label    string
	value    string
	emphasis bool
}

// line is one wrapped, measured row of a block section.
type line struct {
	label      string
	value      string
	valueX     float64
	rightAlign bool
	emphasis   bool
	size       float64
	height     float64
}

func (e *Engine) renderClient(c Cursor) Cursor {
	cl := e.content.Client
	st := e.style.Sections.ClientInfo
	entries := []entry{
		{label: "Client", value: orNA(cl.Name)},
		{label: "Tax ID", value: orNA(cl.Document)},
		{label: "Email", value: orNA(cl.Email)},
		{label: "Phone", value: orNA(cl.Phone)},
		{label: "Address", value: orNA(cl.Address)},
	}
	return e.renderBlock(c, st, e.entryLines(entries, st, false))
}

func (e *Engine) renderSummary(c Cursor) Cursor {
	s := e.content.Summary
	st := e.style.Sections.FinancialSummary
	entries := []entry{
		{label: "Subtotal", value: e.money(s.Subtotal)},
		{label: "Discount (" + pricing.FormatPercent(s.RealDiscountPct) + ")", value: "- " + e.money(s.DiscountAmount)},
		{label: "Total with discount", value: e.money(s.TotalWithDiscount)},
		{label: "Shipping", value: e.money(s.Shipping)},
	}
	if s.InvoicePct.IsPositive() {
		entries = append(entries, entry{
			label: "Invoice " + pricing.FormatPercent(s.InvoicePct) + " (informational)",
			value: e.money(s.InvoiceAmount),
		})
	}
	entries = append(entries, entry{label: "Grand total", value: e.money(s.GrandTotal), emphasis: true})
	return e.renderBlock(c, st, e.entryLines(entries, st, true))
}

func (e *Engine) renderPayment(c Cursor) Cursor {
	p := e.content.Payment
	st := e.style.Sections.PaymentInfo
	entries := []entry{
		{label: "Payment method", value: orNA(p.Method)},
		{label: "Payment type", value: orNA(p.Type)},
	}
	if p.Installments > 0 {
		entries = append(entries, entry{label: "Installments", value: strconv.Itoa(p.Installments)})
	}
	entries = append(entries,
		entry{label: "Shipping", value: orNA(p.Shipping)},
		entry{label: "Shipping cost", value: e.money(p.ShippingCost)},
	)
	optional := []entry{
		{label: "Local delivery", value: p.LocalDelivery},
		{label: "Destination CEP", value: p.DestinationCEP},
		{label: "Check due dates", value: p.CheckDueDates},
		{label: "Invoice due dates", value: p.InvoiceDueDates},
	}
	for _, en := range optional {
		if en.value != "" {
			entries = append(entries, en)
		}
	}
	return e.renderBlock(c, st, e.entryLines(entries, st, false))
}

func (e *Engine) renderNotes(c Cursor) Cursor {
	st := e.style.Sections.Notes
	size := e.style.Fonts.Body
	lh := lineHeight(size, st.LineSpacing)
	inner := e.width - st.Padding.Left - st.Padding.Right

	e.canvas.SetFont(FontRegular, size)
	var lines []line
	for _, text := range WrapText(e.canvas.TextWidth, orNA(e.content.Notes), inner) {
		lines = append(lines, line{value: text, size: size, height: lh})
	}
	return e.renderBlock(c, st, lines)
}

// entryLines measures labels once and wraps values into the remaining width.
func (e *Engine) entryLines(entries []entry, st docstyle.SectionStyle, rightAlign bool) []line {
	size := e.style.Fonts.Body
	inner := e.width - st.Padding.Left - st.Padding.Right

	e.canvas.SetFont(FontBold, size)
	labelW := 0.0
	for _, en := range entries {
		labelW = max(labelW, e.canvas.TextWidth(en.label))
	}
	valueX := labelW + 3
	if valueX > inner/2 {
		valueX = inner / 2
	}

	var out []line
	for _, en := range entries {
		if en.emphasis {
			total := e.style.Fonts.Total
			out = append(out, line{
				label:      en.label,
				value:      en.value,
				valueX:     valueX,
				rightAlign: true,
				emphasis:   true,
				size:       total,
				height:     lineHeight(total, st.LineSpacing),
			})
			continue
		}
		e.canvas.SetFont(FontRegular, size)
		wrapped := WrapText(e.canvas.TextWidth, en.value, inner-valueX)
		for i, text := range wrapped {
			ln := line{value: text, valueX: valueX, rightAlign: rightAlign, size: size, height: lineHeight(size, st.LineSpacing)}
			if i == 0 {
				ln.label = en.label
			}
			out = append(out, ln)
		}
	}
	return out
}

// renderBlock draws a framed section. A block that does not fit the current page moves
// to a new one; a block taller than a whole page is split across pages, repeating the
// frame on each.
func (e *Engine) renderBlock(c Cursor, st docstyle.SectionStyle, lines []line) Cursor {
	pal := resolvePalette(e.style.Colors)
	pad := st.Padding
	titleH := e.titleHeight(st)

	total := pad.Top + titleH + pad.Bottom
	for _, ln := range lines {
		total += ln.height
	}
	minimal := pad.Top + titleH + pad.Bottom
	if len(lines) > 0 {
		minimal += lines[0].height
	}
	capacity := e.bottom - e.top
	if !c.Fits(total, e.bottom) && (total <= capacity || !c.Fits(minimal, e.bottom)) && c.Y > e.top+epsilon {
		c = e.breakPage(c)
	}

	first := true
	i := 0
	for {
		segTop := c.Y
		h := pad.Top
		if first {
			h += titleH
		}
		j := i
		for j < len(lines) && c.Fits(h+lines[j].height+pad.Bottom, e.bottom) {
			h += lines[j].height
			j++
		}
		if j == i && i < len(lines) {
			h += lines[j].height
			j++
		}
		h += pad.Bottom

		e.drawFrame(segTop, h, st, pal)
		y := segTop + pad.Top
		if first {
			y = e.drawTitle(y, st, pal)
		}
		for _, ln := range lines[i:j] {
			e.drawLine(y, ln, st, pal)
			y += ln.height
		}

		c = Cursor{Page: c.Page, Y: segTop + h}
		first = false
		i = j
		if i >= len(lines) {
			return c
		}
		c = e.breakPage(c)
	}
}

func (e *Engine) titleHeight(st docstyle.SectionStyle) float64 {
	if !st.ShowTitle || st.Title == "" {
		return 0
	}
	return st.TitleMargin.Top + lineHeight(e.style.Fonts.SectionTitle, 1.2) + st.TitleMargin.Bottom
}

func (e *Engine) drawTitle(y float64, st docstyle.SectionStyle, pal palette) float64 {
	if !st.ShowTitle || st.Title == "" {
		return y
	}
	size := e.style.Fonts.SectionTitle
	lh := lineHeight(size, 1.2)
	y += st.TitleMargin.Top
	e.canvas.SetFont(FontBold, size)
	e.canvas.SetTextColor(pal.primary)
	e.canvas.Text(e.left+st.Padding.Left+st.TitleMargin.Left, baseline(y, lh, size), st.Title)
	return y + lh + st.TitleMargin.Bottom
}

func (e *Engine) drawFrame(y, h float64, st docstyle.SectionStyle, pal palette) {
	switch {
	case st.Background && st.Border:
		e.canvas.SetFillColor(pal.sectionFill)
		e.canvas.SetDrawColor(pal.border)
		e.canvas.Rect(e.left, y, e.width, h, DrawBoth)
	case st.Background:
		e.canvas.SetFillColor(pal.sectionFill)
		e.canvas.Rect(e.left, y, e.width, h, DrawFill)
	case st.Border:
		e.canvas.SetDrawColor(pal.border)
		e.canvas.Rect(e.left, y, e.width, h, DrawOutline)
	}
}

func (e *Engine) drawLine(y float64, ln line, st docstyle.SectionStyle, pal palette) {
	x := e.left + st.Padding.Left
	inner := e.width - st.Padding.Left - st.Padding.Right
	by := baseline(y, ln.height, ln.size)

	if ln.emphasis {
		e.canvas.SetFillColor(pal.totalFill)
		e.canvas.Rect(x, y, inner, ln.height, DrawFill)
		e.canvas.SetFont(FontBold, ln.size)
		e.canvas.SetTextColor(pal.totalText)
		e.canvas.Text(x+2, by, ln.label)
		e.canvas.Text(x+inner-2-e.canvas.TextWidth(ln.value), by, ln.value)
		return
	}
	if ln.label != "" {
		e.canvas.SetFont(FontBold, ln.size)
		e.canvas.SetTextColor(pal.muted)
		e.canvas.Text(x, by, ln.label)
	}
	e.canvas.SetFont(FontRegular, ln.size)
	e.canvas.SetTextColor(pal.text)
	if ln.rightAlign {
		e.canvas.Text(x+inner-e.canvas.TextWidth(ln.value), by, ln.value)
		return
	}
	e.canvas.Text(x+ln.valueX, by, ln.value)
}
