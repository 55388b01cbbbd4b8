package layout

import (
	"strings"
	"unicode/utf8"
)

// ptToMM converts a font size in points to millimetres.
const ptToMM = 0.3528

// lineHeight is the vertical advance of one text line.
func lineHeight(size, spacing float64) float64 {
	if spacing <= 0 {
		spacing = 1
	}
	return size * ptToMM * spacing
}

// baseline returns the text baseline for a line box starting at top.
func baseline(top, height, size float64) float64 {
	return top + height/2 + size*ptToMM*0.35
}

// WrapText splits s into lines no wider than width using measure. Explicit newlines are
// kept; a single word wider than width is cut to fit.
func WrapText(measure func(string) float64, s string, width float64) []string {
	var out []string
	for _, paragraph := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if measure(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				out = append(out, line)
			}
			for measure(word) > width && utf8.RuneCountInString(word) > 1 {
				head := Truncate(measure, word, width, "")
				out = append(out, head)
				word = word[len(head):]
			}
			line = word
		}
		out = append(out, line)
	}
	return out
}

// Truncate shortens s until it fits width, appending suffix when anything was removed.
func Truncate(measure func(string) float64, s string, width float64, suffix string) string {
	if measure(s) <= width {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + suffix
		if measure(candidate) <= width {
			return candidate
		}
	}
	return string(runes[:1])
}
