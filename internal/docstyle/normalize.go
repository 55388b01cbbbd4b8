package docstyle

import "strings"

// minContentHeight is the smallest printable body height, in millimetres, accepted
// before the page margins are reset.
const minContentHeight = 60.0

// PageSize returns the page width and height in millimetres.
func (p PageConfig) PageSize() (float64, float64) {
	w, h := 210.0, 297.0
	if strings.EqualFold(p.Format, "Letter") {
		w, h = 215.9, 279.4
	}
	if strings.EqualFold(p.Orientation, "landscape") {
		return h, w
	}
	return w, h
}

// ContentWidth is the page width minus the horizontal margins.
func (c Config) ContentWidth() float64 {
	w, _ := c.Page.PageSize()
	return w - c.Page.Margins.Left - c.Page.Margins.Right
}

// HeaderHeight is the vertical space reserved by the header variant.
func (c Config) HeaderHeight() float64 {
	switch c.Header.Variant {
	case HeaderFull:
		return c.Header.Height
	case HeaderCompact:
		return c.Header.CompactHeight
	}
	return 0
}

// FooterHeight is the vertical space reserved by the footer variant.
func (c Config) FooterHeight() float64 {
	if c.Footer.Variant == FooterNone {
		return 0
	}
	return c.Footer.Height
}

// normalize replaces values that cannot be laid out with the matching default.
func (c *Config) normalize(def Config) {
	if !strings.EqualFold(c.Page.Format, "A4") && !strings.EqualFold(c.Page.Format, "Letter") {
		c.Page.Format = def.Page.Format
	}
	if !strings.EqualFold(c.Page.Orientation, "portrait") && !strings.EqualFold(c.Page.Orientation, "landscape") {
		c.Page.Orientation = def.Page.Orientation
	}
	c.Page.Margins = nonNegativeBox(c.Page.Margins, def.Page.Margins)

	switch c.Header.Variant {
	case HeaderFull, HeaderCompact, HeaderNone:
	default:
		c.Header.Variant = def.Header.Variant
	}
	c.Header.Height = positive(c.Header.Height, def.Header.Height)
	c.Header.CompactHeight = positive(c.Header.CompactHeight, def.Header.CompactHeight)
	c.Header.LogoHeight = positive(c.Header.LogoHeight, def.Header.LogoHeight)
	if c.Header.CompanyInfo == nil {
		c.Header.CompanyInfo = []string{}
	}

	switch c.Footer.Variant {
	case FooterPageNumbers, FooterText, FooterBoth, FooterNone:
	default:
		c.Footer.Variant = def.Footer.Variant
	}
	c.Footer.Height = positive(c.Footer.Height, def.Footer.Height)

	c.Fonts.Title = positive(c.Fonts.Title, def.Fonts.Title)
	c.Fonts.SectionTitle = positive(c.Fonts.SectionTitle, def.Fonts.SectionTitle)
	c.Fonts.Body = positive(c.Fonts.Body, def.Fonts.Body)
	c.Fonts.Table = positive(c.Fonts.Table, def.Fonts.Table)
	c.Fonts.TableHeader = positive(c.Fonts.TableHeader, def.Fonts.TableHeader)
	c.Fonts.Small = positive(c.Fonts.Small, def.Fonts.Small)
	c.Fonts.Total = positive(c.Fonts.Total, def.Fonts.Total)

	for _, s := range AllSections() {
		got, want := c.Sections.ref(s), def.Sections.For(s)
		got.Padding = nonNegativeBox(got.Padding, want.Padding)
		got.TitleMargin = nonNegativeBox(got.TitleMargin, want.TitleMargin)
		got.LineSpacing = positive(got.LineSpacing, want.LineSpacing)
	}

	c.Table.RowHeight = positive(c.Table.RowHeight, def.Table.RowHeight)
	c.Table.HeaderHeight = positive(c.Table.HeaderHeight, def.Table.HeaderHeight)
	if c.Table.StripeOpacity < 0 || c.Table.StripeOpacity > 1 {
		c.Table.StripeOpacity = def.Table.StripeOpacity
	}
	c.normalizeColumns(def)

	c.Layout.SectionOrder = normalizeOrder(c.Layout.SectionOrder, def.Layout.SectionOrder)
	show := make(map[Section]bool, len(AllSections()))
	for _, s := range AllSections() {
		show[s] = c.Layout.Visible(s)
	}
	c.Layout.Show = show
	if c.Layout.SectionSpacing < 0 {
		c.Layout.SectionSpacing = def.Layout.SectionSpacing
	}

	_, pageHeight := c.Page.PageSize()
	body := pageHeight - c.Page.Margins.Top - c.Page.Margins.Bottom - c.HeaderHeight() - c.FooterHeight()
	if body < minContentHeight {
		c.Page.Margins = def.Page.Margins
	}
	if c.ContentWidth() < minContentHeight {
		c.Page.Margins = def.Page.Margins
	}
}

func (c *Config) normalizeColumns(def Config) {
	cols := []*Column{
		&c.Table.Columns.Code,
		&c.Table.Columns.Product,
		&c.Table.Columns.Quantity,
		&c.Table.Columns.UnitPrice,
		&c.Table.Columns.Discount,
		&c.Table.Columns.Total,
	}
	defs := def.Table.Columns.Ordered()
	visibleWidth := 0.0
	for i, col := range cols {
		if col.Width < 0 {
			col.Width = 0
		}
		if strings.TrimSpace(col.Label) == "" {
			col.Label = defs[i].Label
		}
		if col.Visible {
			visibleWidth += col.Width
		}
	}
	if visibleWidth > 0 {
		return
	}
	for i, col := range cols {
		if col.Visible || !anyVisible(cols) {
			col.Width = defs[i].Width
		}
	}
	if !anyVisible(cols) {
		for _, col := range cols {
			col.Visible = true
		}
	}
}

func anyVisible(cols []*Column) bool {
	for _, col := range cols {
		if col.Visible {
			return true
		}
	}
	return false
}

func normalizeOrder(order, fallback []Section) []Section {
	seen := make(map[Section]bool, len(order))
	out := make([]Section, 0, len(AllSections()))
	for _, s := range order {
		if !s.Valid() || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return append([]Section(nil), fallback...)
	}
	return out
}

func positive(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}

func nonNegativeBox(b, fallback Box) Box {
	if b.Top < 0 {
		b.Top = fallback.Top
	}
	if b.Right < 0 {
		b.Right = fallback.Right
	}
	if b.Bottom < 0 {
		b.Bottom = fallback.Bottom
	}
	if b.Left < 0 {
		b.Left = fallback.Left
	}
	return b
}
