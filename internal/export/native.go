package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/lucasb-eyer/go-colorful"

	"phCompose/internal/measure"
	"phCompose/internal/pagination"
	"phCompose/internal/paper"
	"phCompose/internal/template"
)

// Native lays documents out in process and draws them with fpdf. It embeds the same fonts the
// browser preview uses, so its pages are cut at the same offsets.
type Native struct {
	registry *template.Registry
}

func NewNative(registry *template.Registry) *Native {
	return &Native{registry: registry}
}

func (n *Native) Export(ctx context.Context, req Request) (*Output, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	layout := render(n.registry, req)
	flow, err := measure.Layout(layout, paper.WidthPx)
	if err != nil {
		return nil, fmt.Errorf("layout document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages := pagination.Paginate(flow.Height, paper.HeightPx)

	data, err := draw(flow, pages, req.Document.Title)
	if err != nil {
		return nil, err
	}
	return &Output{
		Data:        data,
		ContentType: ContentTypePDF,
		TemplateID:  layout.TemplateID,
		Diagnostics: layout.Diagnostics,
		Pages:       pages,
	}, nil
}

type rgb struct{ r, g, b int }

func toRGB(c colorful.Color) rgb {
	r, g, b := c.Clamped().RGB255()
	return rgb{int(r), int(g), int(b)}
}

func hexRGB(s string) rgb {
	c, err := colorful.Hex(s)
	if err != nil {
		return rgb{}
	}
	return toRGB(c)
}

func pt(px float64) float64 { return paper.PxToPt(px) }

// draw slices the flow into pages: every box overlapping a page is drawn shifted by the page
// offset and clipped to the sheet, so a line crossing a break shows on both sides like a cut canvas.
func draw(flow *measure.Flow, pages pagination.Result, title string) ([]byte, error) {
	th := flow.Theme
	fam := th.Family()
	pageW, pageH := pt(paper.WidthPx), pt(paper.HeightPx)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(title, true)
	pdf.SetCreator("phCompose", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(fam.Name, "", fam.Regular)
	pdf.AddUTF8FontFromBytes(fam.Name, "B", fam.Bold)

	var (
		accent = toRGB(th.Accent)
		ink    = hexRGB(th.InkHex())
		muted  = hexRGB("#555555")
		tagBG  = hexRGB(th.Tint(0.85))
		rule   = hexRGB(th.Tint(0.7))
	)
	images := map[*template.Node]string{}
	imageOpts := fpdf.ImageOptions{ImageType: "JPG", AllowNegativePosition: true}

	for page := 0; page < pages.PageCount; page++ {
		top := float64(page * paper.HeightPx)
		bottom := top + paper.HeightPx
		pdf.AddPage()
		pdf.ClipRect(0, 0, pageW, pageH, false)

		for i := range flow.Boxes {
			b := &flow.Boxes[i]
			h := b.H
			if b.Node.Kind == template.KindHeading {
				h += b.Style.After
			}
			if b.Y+h <= top || b.Y >= bottom {
				continue
			}
			y := b.Y - top

			switch b.Node.Kind {
			case template.KindPhoto:
				name, ok := images[b.Node]
				if !ok {
					name = fmt.Sprintf("photo-%d", len(images))
					pdf.RegisterImageOptionsReader(name, imageOpts, bytes.NewReader(b.Node.Image))
					images[b.Node] = name
				}
				pdf.ImageOptions(name, pt(b.X), pt(y), pt(b.W), pt(b.H), false, imageOpts, 0, "")
				continue
			case template.KindTag:
				pdf.SetFillColor(tagBG.r, tagBG.g, tagBG.b)
				pdf.Rect(pt(b.X), pt(y), pt(b.W), pt(b.H), "F")
				if b.Node.Level > 0 {
					filled := b.W * float64(b.Node.Level) / 5
					pdf.SetFillColor(accent.r, accent.g, accent.b)
					pdf.Rect(pt(b.X), pt(y+b.H-2), pt(filled), pt(2), "F")
				}
			case template.KindHeading:
				pdf.SetDrawColor(rule.r, rule.g, rule.b)
				pdf.SetLineWidth(pt(1))
				ly := pt(y + b.H + b.Style.After - 0.5)
				pdf.Line(pt(b.X), ly, pt(b.X+b.W), ly)
			}

			style := ""
			if b.Style.Bold {
				style = "B"
			}
			pdf.SetFont(fam.Name, style, pt(b.Style.Size))
			c := ink
			switch b.Node.Kind {
			case template.KindName, template.KindHeading:
				c = accent
			case template.KindMeta:
				c = muted
			}
			pdf.SetTextColor(c.r, c.g, c.b)

			x := b.X
			if b.Node.Kind == template.KindTag {
				x += b.Style.PadX
			}
			for li, line := range b.Lines {
				ly := y + float64(li)*b.Style.LineHeight
				if b.Node.Kind == template.KindBullet && li == 0 {
					pdf.Text(pt(x-b.Style.Indent+3), pt(ly+b.Baseline), "•")
				}
				pdf.Text(pt(x), pt(ly+b.Baseline), line)
			}
			if b.Node.Href != "" {
				pdf.LinkString(pt(b.X), pt(y), pt(b.W), pt(b.H), b.Node.Href)
			}
		}
		pdf.ClipEnd()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
