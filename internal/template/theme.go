package template

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"phCompose/internal/document"
	"phCompose/internal/fonts"
)

// Page box at density 1, in CSS pixels.
const (
	BaseMargin = 40.0
	BaseGap    = 24.0
	TagGap     = 4.0
	PhotoSize  = 96.0
)

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	ink   = colorful.Color{R: 0.13, G: 0.13, B: 0.15}
)

// ResolvedTheme is the theme a renderer actually applies.
type ResolvedTheme struct {
	Accent     colorful.Color
	FontFamily string
	Density    document.Density
}

// ResolveTheme layers override on top of defaults. Static variants (themeAware=false) use defaults
// only. Unset, unparsable or unsupported override fields fall back to the defaults.
func ResolveTheme(defaults, override document.Theme, themeAware bool) ResolvedTheme {
	t := ResolvedTheme{
		Accent:     parseAccent(defaults.AccentColor, ink),
		FontFamily: fonts.Resolve(defaults.FontFamily).Name,
		Density:    defaults.Density,
	}
	if t.Density == 0 || !t.Density.Valid() {
		t.Density = document.DensityNormal
	}
	if !themeAware {
		return t
	}
	if override.AccentColor != "" {
		t.Accent = parseAccent(override.AccentColor, t.Accent)
	}
	if f, ok := fonts.Lookup(override.FontFamily); ok {
		t.FontFamily = f.Name
	}
	if override.Density != 0 && override.Density.Valid() {
		t.Density = override.Density
	}
	return t
}

func parseAccent(s string, fallback colorful.Color) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		return fallback
	}
	return c
}

// AccentHex returns the accent as #rrggbb.
func (t ResolvedTheme) AccentHex() string { return t.Accent.Hex() }

// Tint mixes the accent toward white; amount 0 is the accent, 1 is white.
func (t ResolvedTheme) Tint(amount float64) string {
	return t.Accent.BlendLab(white, amount).Clamped().Hex()
}

// InkHex is the body text colour.
func (t ResolvedTheme) InkHex() string { return ink.Hex() }

// Family returns the font family the theme selects.
func (t ResolvedTheme) Family() fonts.Family { return fonts.Resolve(t.FontFamily) }

// Space scales a vertical spacing value by the density multiplier.
func (t ResolvedTheme) Space(px float64) float64 {
	return math.Round(px*float64(t.Density)*100) / 100
}

// Margin is the page padding on every side.
func (t ResolvedTheme) Margin() float64 { return t.Space(BaseMargin) }

// Gap is the horizontal space between zones.
func (t ResolvedTheme) Gap() float64 { return t.Space(BaseGap) }

// Style is the box model of one node kind. Sizes are CSS pixels.
type Style struct {
	Size       float64
	LineHeight float64
	Bold       bool
	Before     float64
	After      float64
	Indent     float64
	PadX       float64
}

var baseStyles = map[Kind]Style{
	KindSection:  {After: 6},
	KindHeading:  {Size: 13, LineHeight: 18, Bold: true, Before: 8, After: 6},
	KindName:     {Size: 26, LineHeight: 32, Bold: true, After: 4},
	KindHeadline: {Size: 14, LineHeight: 20, After: 8},
	KindPhoto:    {LineHeight: PhotoSize, After: 8},
	KindItem:     {After: 10},
	KindTitle:    {Size: 12, LineHeight: 17, Bold: true},
	KindMeta:     {Size: 10, LineHeight: 14, After: 2},
	KindText:     {Size: 11, LineHeight: 16, After: 4},
	KindBullet:   {Size: 11, LineHeight: 16, Indent: 14},
	KindTags:     {After: 4},
	KindTag:      {Size: 10, LineHeight: 18, PadX: 6},
}

// Style returns the box model of kind k with vertical spacing scaled by the density.
func (t ResolvedTheme) Style(k Kind) Style {
	s := baseStyles[k]
	s.Before = t.Space(s.Before)
	s.After = t.Space(s.After)
	return s
}

// ZoneWidths returns the pixel width of each zone for a page pageWidth wide.
func (t ResolvedTheme) ZoneWidths(pageWidth float64, zones []*Node) []float64 {
	content := pageWidth - 2*t.Margin()
	if n := len(zones); n > 1 {
		content -= float64(n-1) * t.Gap()
	}
	out := make([]float64, len(zones))
	for i, z := range zones {
		out[i] = math.Floor(content * z.Width)
	}
	return out
}
