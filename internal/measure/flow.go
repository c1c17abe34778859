// Package measure lays a template.Layout out in process using the same font files the HTML page
// embeds. It is the default measuring surface and the geometry source of the native PDF export.
package measure

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"phCompose/internal/fonts"
	"phCompose/internal/template"
)

// Box is one placed node. Text boxes carry their wrapped lines; line i starts at Y + i*LineHeight
// and its baseline sits Baseline below that.
type Box struct {
	Node     *template.Node
	X, Y     float64
	W, H     float64
	Lines    []string
	Baseline float64
	Style    template.Style
}

// Flow is a laid-out document. Coordinates are CSS pixels from the top-left of the page root.
type Flow struct {
	Theme  template.ResolvedTheme
	Width  float64
	Height float64
	Boxes  []Box
}

// Layouter wraps text with cached faces. It is not safe for concurrent use.
type Layouter struct {
	faces map[faceKey]font.Face
}

type faceKey struct {
	family string
	bold   bool
	size   float64
}

func NewLayouter() *Layouter {
	return &Layouter{faces: make(map[faceKey]font.Face)}
}

// Close releases the cached faces.
func (lo *Layouter) Close() error {
	for k, f := range lo.faces {
		f.Close()
		delete(lo.faces, k)
	}
	return nil
}

func (lo *Layouter) face(fam fonts.Family, bold bool, size float64) (font.Face, error) {
	key := faceKey{fam.Name, bold, size}
	if f, ok := lo.faces[key]; ok {
		return f, nil
	}
	fnt, err := fam.Parse(bold)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", fam.Name, err)
	}
	// 72 DPI makes one point one CSS pixel.
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("new face %s %gpx: %w", fam.Name, size, err)
	}
	lo.faces[key] = f
	return f, nil
}

// Flow lays l out on a root pageWidth pixels wide.
func (lo *Layouter) Flow(l *template.Layout, pageWidth float64) (*Flow, error) {
	th := l.Theme
	fl := &Flow{Theme: th, Width: pageWidth}
	st := flowState{lo: lo, th: th, fam: th.Family(), out: fl}

	margin := th.Margin()
	widths := th.ZoneWidths(pageWidth, l.Zones)
	x := margin
	bottom := 0.0
	for i, z := range l.Zones {
		y, err := st.node(z, x, margin, widths[i])
		if err != nil {
			return nil, err
		}
		bottom = math.Max(bottom, y-margin)
		x += widths[i] + th.Gap()
	}
	fl.Height = bottom + 2*margin
	return fl, nil
}

type flowState struct {
	lo  *Layouter
	th  template.ResolvedTheme
	fam fonts.Family
	out *Flow
}

// node places n with its top at y and returns the y below it.
func (st *flowState) node(n *template.Node, x, y, w float64) (float64, error) {
	s := st.th.Style(n.Kind)
	y += s.Before
	x += s.Indent
	w -= s.Indent

	switch n.Kind {
	case template.KindZone, template.KindSection, template.KindItem:
		for _, c := range n.Children {
			var err error
			if y, err = st.node(c, x, y, w); err != nil {
				return 0, err
			}
		}
	case template.KindTags:
		var err error
		if y, err = st.tags(n, x, y, w); err != nil {
			return 0, err
		}
	case template.KindPhoto:
		st.out.Boxes = append(st.out.Boxes, Box{Node: n, X: x, Y: y, W: template.PhotoSize, H: template.PhotoSize, Style: s})
		y += template.PhotoSize
	default:
		face, err := st.lo.face(st.fam, s.Bold, s.Size)
		if err != nil {
			return 0, err
		}
		lines := wrap(face, n.Text, w)
		h := float64(len(lines)) * s.LineHeight
		st.out.Boxes = append(st.out.Boxes, Box{
			Node: n, X: x, Y: y, W: w, H: h, Lines: lines, Baseline: baseline(face, s.LineHeight), Style: s,
		})
		y += h
	}
	return y + s.After, nil
}

// tags flows tag children left to right, wrapping rows like a wrapping flex container.
func (st *flowState) tags(n *template.Node, x, y, w float64) (float64, error) {
	if len(n.Children) == 0 {
		return y, nil
	}
	s := st.th.Style(template.KindTag)
	face, err := st.lo.face(st.fam, s.Bold, s.Size)
	if err != nil {
		return 0, err
	}
	cx, rowY := 0.0, y
	for _, c := range n.Children {
		tw := math.Min(width(face, c.Text)+2*s.PadX, w)
		if cx > 0 && cx+tw > w {
			rowY += s.LineHeight + template.TagGap
			cx = 0
		}
		st.out.Boxes = append(st.out.Boxes, Box{
			Node: c, X: x + cx, Y: rowY, W: tw, H: s.LineHeight, Lines: []string{c.Text},
			Baseline: baseline(face, s.LineHeight), Style: s,
		})
		cx += tw + template.TagGap
	}
	return rowY + s.LineHeight, nil
}

// baseline places the glyphs in the middle of the line box with half the leading above, as CSS does.
func baseline(face font.Face, lineHeight float64) float64 {
	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)
	return (lineHeight-(ascent+descent))/2 + ascent
}

func width(face font.Face, s string) float64 {
	return fixedToFloat(font.MeasureString(face, s))
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// wrap breaks text into lines no wider than w. Newlines force a break, runs of spaces collapse,
// and words wider than w are split between characters.
func wrap(face font.Face, text string, w float64) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if width(face, candidate) <= w {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for width(face, word) > w && utf8.RuneCountInString(word) > 1 {
				head := fitPrefix(face, word, w)
				lines = append(lines, head)
				word = word[len(head):]
			}
			line = word
		}
		lines = append(lines, line)
	}
	return lines
}

// fitPrefix returns the longest prefix of word (at least one rune) no wider than w.
func fitPrefix(face font.Face, word string, w float64) string {
	end := 0
	for i, r := range word {
		next := i + utf8.RuneLen(r)
		if end > 0 && width(face, word[:next]) > w {
			break
		}
		end = next
	}
	return word[:end]
}
