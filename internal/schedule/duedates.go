// Package schedule converts installment day offsets into calendar due dates.
package schedule

import (
	"strings"
	"time"
)

// DateLayout is the display format used when joining due dates.
const DateLayout = "02/01/2006"

// Plan is an installment family ("check-like" or "invoice-like") of a budget.
type Plan struct {
	Count   int
	Offsets []int
}

// DueDates returns anchor + offsets[i] days for every offset. An empty offsets slice
// yields an empty result.
func DueDates(anchor time.Time, offsets []int) []time.Time {
	if len(offsets) == 0 {
		return []time.Time{}
	}
	base := truncateDay(anchor)
	dates := make([]time.Time, len(offsets))
	for i, off := range offsets {
		dates[i] = base.AddDate(0, 0, off)
	}
	return dates
}

// Resize returns an offsets slice of the requested count. Offsets are only kept when the
// count is unchanged; any other count yields all zeros.
func Resize(offsets []int, count int) []int {
	if count < 0 {
		count = 0
	}
	if count == len(offsets) {
		out := make([]int, count)
		copy(out, offsets)
		return out
	}
	return make([]int, count)
}

// Visible returns the due dates whose offset has been set (non-zero), in order.
func Visible(anchor time.Time, offsets []int) []time.Time {
	dates := DueDates(anchor, offsets)
	out := make([]time.Time, 0, len(dates))
	for i, d := range dates {
		if offsets[i] == 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Join renders the dates for display, e.g. "31/01/2024, 01/03/2024".
func Join(dates []time.Time, layout string) string {
	if layout == "" {
		layout = DateLayout
	}
	parts := make([]string, 0, len(dates))
	for _, d := range dates {
		parts = append(parts, d.Format(layout))
	}
	return strings.Join(parts, ", ")
}

// Describe joins the visible due dates of a plan anchored at anchor.
func (p Plan) Describe(anchor time.Time) string {
	return Join(Visible(anchor, p.Offsets), DateLayout)
}

// Resized returns the plan with a new installment count and freshly zeroed offsets.
func (p Plan) Resized(count int) Plan {
	return Plan{Count: max(count, 0), Offsets: Resize(p.Offsets, count)}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
