// Package layout places quote sections onto a paginated canvas. Section renderers take
// a Cursor and return the advanced one; no renderer holds position state of its own.
package layout

import "fmt"

// Cursor is the running position of the layout: a zero-based page index and the vertical
// offset from the top edge of that page, in millimetres.
type Cursor struct {
	Page int
	Y    float64
}

// Down returns the cursor moved dy millimetres down the current page.
func (c Cursor) Down(dy float64) Cursor {
	return Cursor{Page: c.Page, Y: c.Y + dy}
}

// NextPage returns the cursor at the top of the following page.
func (c Cursor) NextPage(top float64) Cursor {
	return Cursor{Page: c.Page + 1, Y: top}
}

// Fits reports whether a block of height h starting at the cursor ends above bottom.
func (c Cursor) Fits(h, bottom float64) bool {
	return c.Y+h <= bottom+epsilon
}

func (c Cursor) String() string {
	return fmt.Sprintf("page %d y=%.2f", c.Page, c.Y)
}

// epsilon absorbs float drift when rows exactly fill a page.
const epsilon = 1e-6
