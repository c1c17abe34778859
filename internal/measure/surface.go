package measure

import (
	"context"
	"errors"

	"phCompose/internal/template"
)

var ErrClosed = errors.New("measure: surface closed")

// Surface measures layouts at a fixed page width. One surface serves one measuring pass.
type Surface struct {
	lo        *Layouter
	pageWidth float64
}

func NewSurface(pageWidth int) *Surface {
	return &Surface{lo: NewLayouter(), pageWidth: float64(pageWidth)}
}

// Measure returns the natural height of l in CSS pixels.
func (s *Surface) Measure(ctx context.Context, l *template.Layout) (float64, error) {
	if s.lo == nil {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fl, err := s.lo.Flow(l, s.pageWidth)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return fl.Height, nil
}

func (s *Surface) Close() error {
	if s.lo == nil {
		return nil
	}
	err := s.lo.Close()
	s.lo = nil
	return err
}

// Layout flows l once with a throwaway layouter.
func Layout(l *template.Layout, pageWidth float64) (*Flow, error) {
	lo := NewLayouter()
	defer lo.Close()
	return lo.Flow(l, pageWidth)
}
