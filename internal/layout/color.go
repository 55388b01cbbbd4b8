package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-quotes/internal/docstyle"
)

// RGB is an additive color triple with components in [0, 255].
type RGB struct {
	R, G, B int
}

// Gray is used whenever a configured color cannot be parsed.
var Gray = RGB{R: 128, G: 128, B: 128}

// ParseHex parses "#RRGGBB", "#RGB" or the same without the leading hash.
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("color %q: expected 3 or 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{R: int((v >> 16) & 0xff), G: int((v >> 8) & 0xff), B: int(v & 0xff)}, nil
}

// ResolveColor parses s and falls back to Gray on malformed input.
func ResolveColor(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		return Gray
	}
	return c
}

// palette is the color set of one section render.
type palette struct {
	primary     RGB
	secondary   RGB
	text        RGB
	muted       RGB
	border      RGB
	headerFill  RGB
	headerText  RGB
	stripe      RGB
	sectionFill RGB
	totalFill   RGB
	totalText   RGB
}

func resolvePalette(c docstyle.ColorConfig) palette {
	return palette{
		primary:     ResolveColor(c.Primary),
		secondary:   ResolveColor(c.Secondary),
		text:        ResolveColor(c.Text),
		muted:       ResolveColor(c.Muted),
		border:      ResolveColor(c.Border),
		headerFill:  ResolveColor(c.TableHeaderBackground),
		headerText:  ResolveColor(c.TableHeaderText),
		stripe:      ResolveColor(c.TableStripe),
		sectionFill: ResolveColor(c.SectionBackground),
		totalFill:   ResolveColor(c.TotalBackground),
		totalText:   ResolveColor(c.TotalText),
	}
}
