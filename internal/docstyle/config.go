// Package docstyle resolves the quote document style descriptor: a complete default
// tree with sparse persisted overrides merged over it field by field.
package docstyle

// Section names one block of the quote document.
type Section string

const (
	SectionClientInfo       Section = "clientInfo"
	SectionItemsTable       Section = "itemsTable"
	SectionFinancialSummary Section = "financialSummary"
	SectionPaymentInfo      Section = "paymentInfo"
	SectionNotes            Section = "notes"
)

// AllSections lists every section in the default order.
func AllSections() []Section {
	return []Section{
		SectionClientInfo,
		SectionItemsTable,
		SectionFinancialSummary,
		SectionPaymentInfo,
		SectionNotes,
	}
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	switch s {
	case SectionClientInfo, SectionItemsTable, SectionFinancialSummary, SectionPaymentInfo, SectionNotes:
		return true
	}
	return false
}

// Header variants.
const (
	HeaderFull    = "full"
	HeaderCompact = "compact"
	HeaderNone    = "none"
)

// Footer variants.
const (
	FooterPageNumbers = "pageNumbers"
	FooterText        = "text"
	FooterBoth        = "both"
	FooterNone        = "none"
)

// Box holds four edge sizes in millimetres.
type Box struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Config is the complete document style descriptor.
type Config struct {
	Page     PageConfig     `json:"page"`
	Header   HeaderConfig   `json:"header"`
	Footer   FooterConfig   `json:"footer"`
	Fonts    FontConfig     `json:"fonts"`
	Colors   ColorConfig    `json:"colors"`
	Sections SectionsConfig `json:"sections"`
	Table    TableConfig    `json:"table"`
	Layout   LayoutConfig   `json:"layout"`
}

type PageConfig struct {
	Format      string `json:"format"`
	Orientation string `json:"orientation"`
	Margins     Box    `json:"margins"`
}

type HeaderConfig struct {
	Variant       string   `json:"variant"`
	Title         string   `json:"title"`
	CompanyName   string   `json:"companyName"`
	CompanyInfo   []string `json:"companyInfo"`
	ShowLogo      bool     `json:"showLogo"`
	LogoHeight    float64  `json:"logoHeight"`
	Height        float64  `json:"height"`
	CompactHeight float64  `json:"compactHeight"`
	ShowDivider   bool     `json:"showDivider"`
}

type FooterConfig struct {
	Variant string  `json:"variant"`
	Text    string  `json:"text"`
	Height  float64 `json:"height"`
}

// FontConfig holds font sizes in points.
type FontConfig struct {
	Title        float64 `json:"title"`
	SectionTitle float64 `json:"sectionTitle"`
	Body         float64 `json:"body"`
	Table        float64 `json:"table"`
	TableHeader  float64 `json:"tableHeader"`
	Small        float64 `json:"small"`
	Total        float64 `json:"total"`
}

// ColorConfig holds hex colors ("#RRGGBB" or "#RGB").
type ColorConfig struct {
	Primary               string `json:"primary"`
	Secondary             string `json:"secondary"`
	Text                  string `json:"text"`
	Muted                 string `json:"muted"`
	Border                string `json:"border"`
	TableHeaderBackground string `json:"tableHeaderBackground"`
	TableHeaderText       string `json:"tableHeaderText"`
	TableStripe           string `json:"tableStripe"`
	SectionBackground     string `json:"sectionBackground"`
	TotalBackground       string `json:"totalBackground"`
	TotalText             string `json:"totalText"`
}

// SectionStyle controls the frame of one section.
type SectionStyle struct {
	Title       string  `json:"title"`
	ShowTitle   bool    `json:"showTitle"`
	Padding     Box     `json:"padding"`
	TitleMargin Box     `json:"titleMargin"`
	LineSpacing float64 `json:"lineSpacing"`
	Border      bool    `json:"border"`
	Background  bool    `json:"background"`
}

type SectionsConfig struct {
	ClientInfo       SectionStyle `json:"clientInfo"`
	ItemsTable       SectionStyle `json:"itemsTable"`
	FinancialSummary SectionStyle `json:"financialSummary"`
	PaymentInfo      SectionStyle `json:"paymentInfo"`
	Notes            SectionStyle `json:"notes"`
}

// For returns the style of the given section.
func (s SectionsConfig) For(section Section) SectionStyle {
	switch section {
	case SectionClientInfo:
		return s.ClientInfo
	case SectionItemsTable:
		return s.ItemsTable
	case SectionFinancialSummary:
		return s.FinancialSummary
	case SectionPaymentInfo:
		return s.PaymentInfo
	case SectionNotes:
		return s.Notes
	}
	return SectionStyle{}
}

func (s *SectionsConfig) ref(section Section) *SectionStyle {
	switch section {
	case SectionClientInfo:
		return &s.ClientInfo
	case SectionItemsTable:
		return &s.ItemsTable
	case SectionFinancialSummary:
		return &s.FinancialSummary
	case SectionPaymentInfo:
		return &s.PaymentInfo
	case SectionNotes:
		return &s.Notes
	}
	return nil
}

// Column describes one items-table column. Width is a percentage of the content width.
type Column struct {
	Label   string  `json:"label"`
	Width   float64 `json:"width"`
	Visible bool    `json:"visible"`
}

type ColumnsConfig struct {
	Code      Column `json:"code"`
	Product   Column `json:"product"`
	Quantity  Column `json:"quantity"`
	UnitPrice Column `json:"unitPrice"`
	Discount  Column `json:"discount"`
	Total     Column `json:"total"`
}

// ColumnKey identifies a table column.
type ColumnKey string

const (
	ColumnCode      ColumnKey = "code"
	ColumnProduct   ColumnKey = "product"
	ColumnQuantity  ColumnKey = "quantity"
	ColumnUnitPrice ColumnKey = "unitPrice"
	ColumnDiscount  ColumnKey = "discount"
	ColumnTotal     ColumnKey = "total"
)

// Ordered returns the columns in display order keyed by ColumnKey.
func (c ColumnsConfig) Ordered() []KeyedColumn {
	return []KeyedColumn{
		{Key: ColumnCode, Column: c.Code},
		{Key: ColumnProduct, Column: c.Product},
		{Key: ColumnQuantity, Column: c.Quantity},
		{Key: ColumnUnitPrice, Column: c.UnitPrice},
		{Key: ColumnDiscount, Column: c.Discount},
		{Key: ColumnTotal, Column: c.Total},
	}
}

// KeyedColumn pairs a column with its key.
type KeyedColumn struct {
	Key ColumnKey
	Column
}

type TableConfig struct {
	RowHeight     float64       `json:"rowHeight"`
	HeaderHeight  float64       `json:"headerHeight"`
	Striped       bool          `json:"striped"`
	StripeOpacity float64       `json:"stripeOpacity"`
	GridLines     bool          `json:"gridLines"`
	Columns       ColumnsConfig `json:"columns"`
}

type LayoutConfig struct {
	SectionOrder   []Section        `json:"sectionOrder"`
	Show           map[Section]bool `json:"show"`
	SectionSpacing float64          `json:"sectionSpacing"`
}

// Visible reports whether a section is enabled. Sections absent from Show are visible.
func (l LayoutConfig) Visible(section Section) bool {
	show, ok := l.Show[section]
	return !ok || show
}

// Defaults returns the complete built-in style tree. Each call returns a fresh copy.
func Defaults() Config {
	framed := func(title string) SectionStyle {
		return SectionStyle{
			Title:       title,
			ShowTitle:   true,
			Padding:     Box{Top: 3, Right: 4, Bottom: 3, Left: 4},
			TitleMargin: Box{Top: 0, Right: 0, Bottom: 2, Left: 0},
			LineSpacing: 1.4,
			Border:      true,
			Background:  false,
		}
	}
	items := framed("Items")
	items.Padding = Box{}
	items.Border = false

	show := make(map[Section]bool, len(AllSections()))
	for _, s := range AllSections() {
		show[s] = true
	}

	return Config{
		Page: PageConfig{
			Format:      "A4",
			Orientation: "portrait",
			Margins:     Box{Top: 15, Right: 15, Bottom: 15, Left: 15},
		},
		Header: HeaderConfig{
			Variant:       HeaderFull,
			Title:         "QUOTE",
			CompanyName:   "",
			CompanyInfo:   []string{},
			ShowLogo:      true,
			LogoHeight:    18,
			Height:        30,
			CompactHeight: 12,
			ShowDivider:   true,
		},
		Footer: FooterConfig{
			Variant: FooterPageNumbers,
			Text:    "",
			Height:  10,
		},
		Fonts: FontConfig{
			Title:        16,
			SectionTitle: 11,
			Body:         9,
			Table:        8,
			TableHeader:  8,
			Small:        7,
			Total:        11,
		},
		Colors: ColorConfig{
			Primary:               "#1F4E79",
			Secondary:             "#2E75B6",
			Text:                  "#222222",
			Muted:                 "#6B7280",
			Border:                "#D1D5DB",
			TableHeaderBackground: "#1F4E79",
			TableHeaderText:       "#FFFFFF",
			TableStripe:           "#F3F4F6",
			SectionBackground:     "#F9FAFB",
			TotalBackground:       "#1F4E79",
			TotalText:             "#FFFFFF",
		},
		Sections: SectionsConfig{
			ClientInfo:       framed("Client"),
			ItemsTable:       items,
			FinancialSummary: framed("Financial summary"),
			PaymentInfo:      framed("Payment & shipping"),
			Notes:            framed("Notes"),
		},
		Table: TableConfig{
			RowHeight:     7,
			HeaderHeight:  8,
			Striped:       true,
			StripeOpacity: 0.6,
			GridLines:     false,
			Columns: ColumnsConfig{
				Code:      Column{Label: "Code", Width: 12, Visible: true},
				Product:   Column{Label: "Product", Width: 38, Visible: true},
				Quantity:  Column{Label: "Qty", Width: 10, Visible: true},
				UnitPrice: Column{Label: "Unit price", Width: 14, Visible: true},
				Discount:  Column{Label: "Disc. %", Width: 10, Visible: true},
				Total:     Column{Label: "Total", Width: 16, Visible: true},
			},
		},
		Layout: LayoutConfig{
			SectionOrder:   AllSections(),
			Show:           show,
			SectionSpacing: 6,
		},
	}
}
