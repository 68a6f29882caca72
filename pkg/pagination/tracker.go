// Package pagination reconstructs human-readable page numbers for
// cursor-based upstream APIs. The upstream cursor is opaque and is the only
// thing ever sent back upstream; the page counter kept here is a display aid
// reconstructed from which cursor the client echoed in the current request.
package pagination

import (
	"errors"
	"fmt"
)

const (
	// DefaultPageSize is the page size used when the client does not ask
	// for one.
	DefaultPageSize = 25

	// MaxPageSize caps the page size a client may request.
	MaxPageSize = 100
)

// ErrInvalidPageSize is returned when the requested page size is out of range
var ErrInvalidPageSize = errors.New("page size must be greater than 0 and at most MaxPageSize")

// ClampPageSize applies the default and the cap to a requested page size.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// ValidatePageSize rejects page sizes outside the allowed range. Zero is
// accepted and means "use the default".
func ValidatePageSize(size int) error {
	if size < 0 || size > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, size)
	}
	return nil
}

// Tracker maps a pagination key to the page number it stands for. The empty
// key is always page one; any other key is the cursor the client passed in
// the current request, learned when a previous response handed that cursor
// out. State is in-memory and session-local: it is created lazily, never
// persisted, and never consulted for anything but display.
//
// Known limitation: two interleaved pagination sessions for the same tool
// share these counters and can display confusing page numbers. That is a
// display-quality defect only; the opaque cursor, not the counter, is what
// goes upstream.
type Tracker struct {
	pages map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pages: make(map[string]int)}
}

// Observe returns the 1-based page number for a request arriving with the
// given cursor and, when the upstream returned a next-page cursor, records
// the page number that cursor will stand for. Counters only move forward: a
// cursor re-learned at a lower page keeps its higher number.
func (t *Tracker) Observe(cursor, nextCursor string) int {
	page := 1
	if cursor != "" {
		if p, ok := t.pages[cursor]; ok {
			page = p
		}
	}

	if nextCursor != "" {
		if p, ok := t.pages[nextCursor]; !ok || p < page+1 {
			t.pages[nextCursor] = page + 1
		}
	}

	return page
}

// StartIndex returns the display-only 1-based index of the first item on a
// page. The 0-based offset of the same boundary is pageSize*(page-1); only
// the presentation differs.
func StartIndex(page, pageSize int) int {
	return (page-1)*pageSize + 1
}

// Summary renders the "page N (items X-Y)" suffix for a page holding count
// items.
func Summary(page, pageSize, count int) string {
	start := StartIndex(page, pageSize)
	if count == 0 {
		return fmt.Sprintf("page %d (no items)", page)
	}
	return fmt.Sprintf("page %d (items %d-%d)", page, start, start+count-1)
}
