package layout

import (
	"unicode/utf8"
)

// Op is one drawing call captured by Recorder.
type Op struct {
	Kind  string
	Page  int
	X, Y  float64
	W, H  float64
	Text  string
	Style string
	Size  float64
	Color RGB
	Alpha float64
}

// Recorder is an in-memory Canvas that records every call. Text width is estimated from
// the rune count so layouts are deterministic without font metrics.
type Recorder struct {
	Width, Height float64
	Ops           []Op

	pages   int
	current int
	size    float64
	style   string
	text    RGB
	fill    RGB
	alpha   float64
}

// NewRecorder returns a recorder with an A4 portrait page size.
func NewRecorder() *Recorder {
	return &Recorder{Width: 210, Height: 297, alpha: 1}
}

func (r *Recorder) AddPage() {
	r.pages++
	r.current = r.pages
	r.Ops = append(r.Ops, Op{Kind: "page", Page: r.current})
}

func (r *Recorder) SetPage(n int) {
	if n >= 1 && n <= r.pages {
		r.current = n
	}
}

func (r *Recorder) PageCount() int { return r.pages }

func (r *Recorder) PageSize() (float64, float64) { return r.Width, r.Height }

func (r *Recorder) SetFont(style string, size float64) {
	r.style, r.size = style, size
}

func (r *Recorder) SetTextColor(c RGB) { r.text = c }
func (r *Recorder) SetFillColor(c RGB) { r.fill = c }
func (r *Recorder) SetDrawColor(RGB)   {}

func (r *Recorder) SetAlpha(alpha float64) {
	r.alpha = alpha
	r.Ops = append(r.Ops, Op{Kind: "alpha", Page: r.current, Alpha: alpha})
}

func (r *Recorder) Text(x, y float64, s string) {
	r.Ops = append(r.Ops, Op{Kind: "text", Page: r.current, X: x, Y: y, Text: s, Style: r.style, Size: r.size, Color: r.text, Alpha: r.alpha})
}

func (r *Recorder) TextWidth(s string) float64 {
	return float64(utf8.RuneCountInString(s)) * r.size * ptToMM * 0.5
}

func (r *Recorder) Rect(x, y, w, h float64, style string) {
	r.Ops = append(r.Ops, Op{Kind: "rect", Page: r.current, X: x, Y: y, W: w, H: h, Style: style, Color: r.fill, Alpha: r.alpha})
}

func (r *Recorder) Line(x1, y1, x2, y2 float64) {
	r.Ops = append(r.Ops, Op{Kind: "line", Page: r.current, X: x1, Y: y1, W: x2 - x1, H: y2 - y1})
}

func (r *Recorder) Image(name string, data []byte, x, y, w, h float64) error {
	r.Ops = append(r.Ops, Op{Kind: "image", Page: r.current, X: x, Y: y, W: w, H: h, Text: name})
	return nil
}

// Texts returns every string drawn on the one-based page, in drawing order.
func (r *Recorder) Texts(page int) []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == "text" && op.Page == page {
			out = append(out, op.Text)
		}
	}
	return out
}

// Find returns the text operations whose content equals s.
func (r *Recorder) Find(s string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Kind == "text" && op.Text == s {
			out = append(out, op)
		}
	}
	return out
}
