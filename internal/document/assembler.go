// Package document turns priced quotes into downloadable PDF and spreadsheet artifacts.
package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-quotes/internal/budget"
	"github.com/noah-isme/backend-quotes/internal/docstyle"
	"github.com/noah-isme/backend-quotes/internal/layout"
	"github.com/noah-isme/backend-quotes/internal/obs"
	"github.com/noah-isme/backend-quotes/internal/schedule"
)

// Format is an artifact format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "pdf" (the default when empty) and "xlsx".
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("document: unsupported format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// StyleSource resolves the effective document style. It never fails.
type StyleSource interface {
	Resolve(ctx context.Context) docstyle.Config
}

// Artifact is a rendered document ready for delivery.
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
	Format      Format
	Pages       int
}

// AssemblerConfig wires the Assembler dependencies.
type AssemblerConfig struct {
	Styles      StyleSource
	Logo        LogoSource
	CompanyName string
	Currency    string
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Assembler orchestrates style resolution, pricing output and layout into an artifact.
type Assembler struct {
	styles      StyleSource
	logo        LogoSource
	companyName string
	currency    string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssembler constructs an Assembler.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Assembler{
		styles:      cfg.Styles,
		logo:        cfg.Logo,
		companyName: strings.TrimSpace(cfg.CompanyName),
		currency:    cfg.Currency,
		logger:      cfg.Logger,
		now:         now,
	}
}

// Assemble renders q in the requested format. Style and logo failures degrade to the
// defaults and to no logo; only rendering failures are returned.
func (a *Assembler) Assemble(ctx context.Context, q budget.Quote, format Format) (Artifact, error) {
	ctx, span := otel.Tracer("document.Assembler").Start(ctx, "document.assemble")
	defer span.End()
	span.SetAttributes(
		attribute.String("budget.id", q.Budget.ID.String()),
		attribute.String("document.format", string(format)),
		attribute.Int("budget.items", len(q.Budget.Items)),
	)

	style, logo := a.prepare(ctx)
	content := BuildContent(q, a.currency)
	content.Logo = logo
	filename := Filename(q.ClientName(), a.now(), string(format))

	var (
		art Artifact
		err error
	)
	switch format {
	case FormatXLSX:
		var data []byte
		data, err = RenderWorkbook(content, style)
		art = Artifact{Data: data, Pages: 1}
	default:
		format = FormatPDF
		art, err = a.renderPDF(content, style)
	}
	result := "ok"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if obs.DocumentsRenderedTotal != nil {
		obs.DocumentsRenderedTotal.WithLabelValues(string(format), result).Inc()
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	art.Filename = filename
	art.Format = format
	art.ContentType = format.ContentType()
	span.SetAttributes(attribute.Int("document.pages", art.Pages), attribute.Int("document.bytes", len(art.Data)))
	return art, nil
}

// prepare resolves the style and the logo concurrently.
func (a *Assembler) prepare(ctx context.Context) (docstyle.Config, *layout.Image) {
	var (
		style docstyle.Config
		logo  *layout.Image
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if a.styles == nil {
			style = docstyle.Defaults()
			return nil
		}
		style = a.styles.Resolve(gctx)
		return nil
	})
	g.Go(func() error {
		if a.logo == nil {
			return nil
		}
		img, err := a.logo.Logo(gctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("logo unavailable; rendering without logo")
			return nil
		}
		logo = img
		return nil
	})
	_ = g.Wait()

	if strings.TrimSpace(style.Header.CompanyName) == "" {
		style.Header.CompanyName = a.companyName
	}
	return style, logo
}

func (a *Assembler) renderPDF(content layout.Content, style docstyle.Config) (Artifact, error) {
	canvas := layout.NewPDFCanvas(style.Page)
	canvas.SetTitle(strings.TrimSpace(style.Header.Title + " " + content.Number))
	engine := layout.NewEngine(canvas, style, content)
	engine.Render(engine.Begin())
	pages := engine.Finish()
	for _, w := range engine.Warnings() {
		a.logger.Warn().Err(w).Str("quote", content.Number).Msg("layout warning")
	}
	data, err := canvas.Bytes()
	if err != nil {
		return Artifact{}, err
	}
	if obs.DocumentPages != nil {
		obs.DocumentPages.Observe(float64(pages))
	}
	return Artifact{Data: data, Pages: pages}, nil
}

// BuildContent maps a resolved quote onto the layout input. Missing references become
// empty strings so the layout renders its placeholders.
func BuildContent(q budget.Quote, currency string) layout.Content {
	b := q.Budget
	issued := b.CreatedAt
	content := layout.Content{
		Number:   QuoteNumber(q),
		IssuedAt: issued,
		Summary:  q.Summary,
		Notes:    b.Notes,
		Currency: currency,
	}
	if q.Client != nil {
		content.Client = layout.Client{
			Name:     q.Client.Name,
			Document: q.Client.Document,
			Email:    q.Client.Email,
			Phone:    q.Client.Phone,
			Address:  q.Client.Address,
		}
	}

	content.Rows = make([]layout.Row, len(b.Items))
	for i, it := range b.Items {
		row := layout.Row{
			Code:        it.ProductCode,
			Qty:         it.Quantity,
			UnitPrice:   it.UnitPrice,
			DiscountPct: it.DiscountPct,
		}
		if it.ProductID != nil {
			if p, ok := q.Products[*it.ProductID]; ok {
				row.Product = p.Name
				if row.Code == "" {
					row.Code = p.Code
				}
			}
		}
		if i < len(q.Summary.Lines) {
			row.Total = q.Summary.Lines[i].Total
		}
		content.Rows[i] = row
	}

	dates := b.DueDates()
	content.Payment = layout.Payment{
		Method:          optionName(q.PaymentMethod),
		Type:            optionName(q.PaymentType),
		Installments:    b.Installments,
		Shipping:        optionName(q.ShippingOption),
		ShippingCost:    q.Summary.Shipping,
		LocalDelivery:   b.LocalDeliveryInfo,
		DestinationCEP:  b.DestinationCEP,
		CheckDueDates:   schedule.Join(dates.Check, schedule.DateLayout),
		InvoiceDueDates: schedule.Join(dates.Boleto, schedule.DateLayout),
	}
	return content
}

// QuoteNumber is the short human reference printed on documents.
func QuoteNumber(q budget.Quote) string {
	id := strings.ReplaceAll(q.Budget.ID.String(), "-", "")
	return "Q-" + strings.ToUpper(id[:8])
}

func optionName(o *budget.Option) string {
	if o == nil {
		return ""
	}
	return o.Name
}
