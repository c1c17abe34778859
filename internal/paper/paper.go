// Package paper holds the page geometry shared by the interactive preview and every export path.
// All pixel values are CSS pixels at DPI.
package paper

import "math"

// DPI is the reference resolution of one CSS pixel.
const DPI = 96

const mmPerInch = 25.4

// Size is a physical sheet.
type Size struct {
	Name     string
	WidthMM  float64
	HeightMM float64
}

var (
	A4     = Size{Name: "A4", WidthMM: 210, HeightMM: 297}
	Letter = Size{Name: "Letter", WidthMM: 215.9, HeightMM: 279.4}
)

// Canonical A4 page at 96 DPI. The width is rounded, the height truncated, matching the
// print stylesheet the exporters use.
const (
	WidthPx  = 794
	HeightPx = 1122
)

// WidthInches and HeightInches are the A4 paper size handed to the browser print dialog.
const (
	WidthInches  = 8.27
	HeightInches = 11.69
)

// WidthPx returns the sheet width in CSS pixels, rounded to the nearest pixel.
func (s Size) WidthPx() int {
	return int(math.Round(s.WidthMM / mmPerInch * DPI))
}

// HeightPx returns the sheet height in CSS pixels, truncated so content never spills past the sheet.
func (s Size) HeightPx() int {
	return int(math.Floor(s.HeightMM / mmPerInch * DPI))
}

// PxToPt converts CSS pixels to PDF points (1pt = 1/72in).
func PxToPt(px float64) float64 {
	return px * 72 / DPI
}

// PtToPx converts PDF points to CSS pixels.
func PtToPx(pt float64) float64 {
	return pt * DPI / 72
}
