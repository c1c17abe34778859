// Package pagination measures rendered layouts and derives page breaks from their natural height.
package pagination

import "math"

// snapTolerance absorbs sub-pixel noise from surfaces so a height that lands on a page boundary
// does not spill onto an extra page.
const snapTolerance = 0.5

// Result is the derived page layout of one document. It is never persisted.
type Result struct {
	PageCount        int   `json:"pageCount"`
	PageBreakOffsets []int `json:"pageBreakOffsets"`
}

// Equal reports whether r and o describe the same pages.
func (r Result) Equal(o Result) bool {
	if r.PageCount != o.PageCount || len(r.PageBreakOffsets) != len(o.PageBreakOffsets) {
		return false
	}
	for i := range r.PageBreakOffsets {
		if r.PageBreakOffsets[i] != o.PageBreakOffsets[i] {
			return false
		}
	}
	return true
}

// Paginate cuts a document of the given height into pages of pageHeight pixels. There is always at least one page;
// break offsets are the page boundaries below the first page.
//
// The count is ceil(height/pageHeight) after snapping: a height less than snapTolerance (0.5px)
// away from a page boundary is treated as exactly on it, so pageHeight+0.3 is one page and
// pageHeight+0.5 is two.
func Paginate(height float64, pageHeight int) Result {
	if pageHeight <= 0 {
		return Result{PageCount: 1, PageBreakOffsets: []int{}}
	}
	ph := float64(pageHeight)
	if math.IsNaN(height) || math.IsInf(height, 0) || height < 0 {
		height = 0
	}
	if b := math.Round(height/ph) * ph; math.Abs(height-b) < snapTolerance {
		height = b
	}
	count := int(math.Ceil(height / ph))
	if count < 1 {
		count = 1
	}
	offsets := make([]int, 0, count-1)
	for i := 1; i < count; i++ {
		offsets = append(offsets, i*pageHeight)
	}
	return Result{PageCount: count, PageBreakOffsets: offsets}
}
