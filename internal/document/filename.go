package document

import (
	"fmt"
	"strings"
	"time"
)

// unnamedClient replaces a client name that sanitizes to nothing.
const unnamedClient = "Client"

// Filename returns "Quote_<SanitizedClientName>_<YYYY-MM-DD>.<ext>". Everything except
// ASCII letters and digits is stripped from the client name.
func Filename(client string, date time.Time, ext string) string {
	var b strings.Builder
	for _, r := range client {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = unnamedClient
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	return fmt.Sprintf("Quote_%s_%s.%s", name, date.Format(time.DateOnly), ext)
}
