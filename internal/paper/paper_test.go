package paper

import (
	"math"
	"testing"
)

func TestA4MatchesCanonicalPixels(t *testing.T) {
	if got := A4.WidthPx(); got != WidthPx {
		t.Fatalf("A4 width = %d, want %d", got, WidthPx)
	}
	if got := A4.HeightPx(); got != HeightPx {
		t.Fatalf("A4 height = %d, want %d", got, HeightPx)
	}
}

func TestPointConversionRoundTrip(t *testing.T) {
	for _, px := range []float64{0, 1, WidthPx, HeightPx, 37.5} {
		if got := PtToPx(PxToPt(px)); math.Abs(got-px) > 1e-9 {
			t.Fatalf("round trip %v -> %v", px, got)
		}
	}
	if got := PxToPt(96); got != 72 {
		t.Fatalf("96px = %vpt, want 72", got)
	}
}
