// Package viewport fits fixed-size pages into a container of arbitrary width.
package viewport

import (
	"math"

	"phCompose/internal/paper"
)

// DefaultMinScale bounds the scale away from zero on tiny containers.
const DefaultMinScale = 0.1

// Scaler computes the uniform scale of the page stack. Pages never upscale.
type Scaler struct {
	PageWidth  float64
	PageHeight float64
	// Margin is the horizontal space reserved around the pages.
	Margin   float64
	MinScale float64
}

// Frame is the scaled page stack.
type Frame struct {
	Scale  float64 `json:"scale"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// New returns a scaler for A4 pages at the canonical pixel size.
func New(margin float64) Scaler {
	return Scaler{
		PageWidth:  paper.WidthPx,
		PageHeight: paper.HeightPx,
		Margin:     margin,
		MinScale:   DefaultMinScale,
	}
}

// Scale returns min(1, (containerWidth - Margin) / PageWidth), bounded below by MinScale.
// The result is exactly 1 iff containerWidth >= PageWidth + Margin.
func (s Scaler) Scale(containerWidth float64) float64 {
	lo := s.minScale()
	switch {
	case math.IsInf(containerWidth, 1):
		return 1
	case math.IsNaN(containerWidth), math.IsInf(containerWidth, -1), s.PageWidth <= 0:
		return lo
	}
	scale := (containerWidth - s.Margin) / s.PageWidth
	if scale >= 1 {
		return 1
	}
	return math.Max(lo, scale)
}

// Frame scales pageCount stacked pages to fit containerWidth.
func (s Scaler) Frame(containerWidth float64, pageCount int) Frame {
	if pageCount < 1 {
		pageCount = 1
	}
	scale := s.Scale(containerWidth)
	return Frame{
		Scale:  scale,
		Width:  s.PageWidth * scale,
		Height: float64(pageCount) * s.PageHeight * scale,
	}
}

func (s Scaler) minScale() float64 {
	if s.MinScale <= 0 || s.MinScale > 1 {
		return DefaultMinScale
	}
	return s.MinScale
}
