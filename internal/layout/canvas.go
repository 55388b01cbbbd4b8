package layout

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
)

// Font styles accepted by Canvas.SetFont.
const (
	FontRegular = ""
	FontBold    = "B"
)

// Rect styles accepted by Canvas.Rect.
const (
	DrawOutline = "D"
	DrawFill    = "F"
	DrawBoth    = "FD"
)

// Canvas is the drawing surface used by the engine. Coordinates are millimetres from the
// top-left corner; pages are one-based as in the PDF model.
type Canvas interface {
	AddPage()
	SetPage(n int)
	PageCount() int
	PageSize() (float64, float64)
	SetFont(style string, size float64)
	SetTextColor(c RGB)
	SetFillColor(c RGB)
	SetDrawColor(c RGB)
	SetAlpha(alpha float64)
	Text(x, y float64, s string)
	TextWidth(s string) float64
	Rect(x, y, w, h float64, style string)
	Line(x1, y1, x2, y2 float64)
	Image(name string, data []byte, x, y, w, h float64) error
}

// PDFCanvas draws onto an fpdf document using the built-in Helvetica family.
type PDFCanvas struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
	family    string
	images    map[string]bool
}

// NewPDFCanvas creates an empty document sized and oriented like page.
func NewPDFCanvas(page docstyle.PageConfig) *PDFCanvas {
	orientation := "P"
	if strings.EqualFold(page.Orientation, "landscape") {
		orientation = "L"
	}
	size := "A4"
	if strings.EqualFold(page.Format, "Letter") {
		size = "Letter"
	}
	pdf := fpdf.New(orientation, "mm", size, "")
	pdf.SetMargins(page.Margins.Left, page.Margins.Top, page.Margins.Right)
	pdf.SetAutoPageBreak(false, page.Margins.Bottom)
	pdf.SetCreator("backend-quotes", true)
	pdf.SetLineWidth(0.2)
	return &PDFCanvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		family:    "Helvetica",
		images:    map[string]bool{},
	}
}

// SetTitle sets the document metadata title.
func (c *PDFCanvas) SetTitle(title string) {
	c.pdf.SetTitle(title, true)
}

func (c *PDFCanvas) AddPage()       { c.pdf.AddPage() }
func (c *PDFCanvas) SetPage(n int)  { c.pdf.SetPage(n) }
func (c *PDFCanvas) PageCount() int { return c.pdf.PageCount() }

func (c *PDFCanvas) PageSize() (float64, float64) {
	return c.pdf.GetPageSize()
}

func (c *PDFCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont(c.family, style, size)
}

func (c *PDFCanvas) SetTextColor(rgb RGB) { c.pdf.SetTextColor(rgb.R, rgb.G, rgb.B) }
func (c *PDFCanvas) SetFillColor(rgb RGB) { c.pdf.SetFillColor(rgb.R, rgb.G, rgb.B) }
func (c *PDFCanvas) SetDrawColor(rgb RGB) { c.pdf.SetDrawColor(rgb.R, rgb.G, rgb.B) }

func (c *PDFCanvas) SetAlpha(alpha float64) {
	c.pdf.SetAlpha(alpha, "Normal")
}

func (c *PDFCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.translate(s))
}

func (c *PDFCanvas) TextWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

func (c *PDFCanvas) Rect(x, y, w, h float64, style string) {
	c.pdf.Rect(x, y, w, h, style)
}

func (c *PDFCanvas) Line(x1, y1, x2, y2 float64) {
	c.pdf.Line(x1, y1, x2, y2)
}

// Image places a PNG image. A decoding failure is returned and leaves the document usable.
func (c *PDFCanvas) Image(name string, data []byte, x, y, w, h float64) error {
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	if !c.images[name] {
		c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		if err := c.pdf.Error(); err != nil {
			c.pdf.ClearError()
			return fmt.Errorf("register image %s: %w", name, err)
		}
		c.images[name] = true
	}
	c.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return nil
}

// Bytes finalizes the document.
func (c *PDFCanvas) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
