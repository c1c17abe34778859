package template

import (
	"encoding/base64"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"

	"phCompose/internal/document"
	"phCompose/internal/paper"
)

const pageHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>{{.CSS}}</style>
</head>
<body>
<div id="doc-root" class="tpl-{{.ID}}">
{{- range .Zones}}<div class="zone zone-{{.Zone}}">{{range .Children}}{{template "node" .}}{{end}}</div>{{end -}}
</div>
</body>
</html>
{{define "node" -}}
{{if eq .Kind "photo"}}<img class="k-photo" src="{{photoSrc .Image}}" alt="">
{{- else if eq .Kind "section" "item" "tags"}}<div class="k-{{.Kind}}"{{with .Section}} data-section="{{.}}"{{end}}>{{range .Children}}{{template "node" .}}{{end}}</div>
{{- else if .Href}}<a class="k-{{.Kind}}" href="{{.Href}}">{{.Text}}</a>
{{- else}}<div class="k-{{.Kind}}"{{with .Level}} data-level="{{.}}"{{end}}>{{.Text}}</div>
{{- end}}
{{- end}}`

var page = htmltemplate.Must(htmltemplate.New("page").Funcs(htmltemplate.FuncMap{
	"photoSrc": func(b []byte) htmltemplate.URL {
		return htmltemplate.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b))
	},
}).Parse(pageHTML))

// HTML writes the layout as a standalone page whose #doc-root is one canonical page wide.
// Content overflows downward; pages are cut from the root's height.
func (l *Layout) HTML(w io.Writer) error {
	data := struct {
		ID    string
		CSS   htmltemplate.CSS
		Zones []*Node
	}{
		ID:    l.TemplateID,
		CSS:   htmltemplate.CSS(l.css()),
		Zones: l.Zones,
	}
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("render layout html: %w", err)
	}
	return nil
}

var cssKinds = []Kind{
	KindSection, KindHeading, KindName, KindHeadline, KindPhoto, KindItem,
	KindTitle, KindMeta, KindText, KindBullet, KindTags, KindTag,
}

func (l *Layout) css() string {
	th := l.Theme
	fam := th.Family()
	var b strings.Builder

	fmt.Fprintf(&b, "@page{size:%gin %gin;margin:0}", paper.WidthInches, paper.HeightInches)
	for _, face := range []struct {
		weight int
		data   []byte
	}{{400, fam.Regular}, {700, fam.Bold}} {
		fmt.Fprintf(&b, "@font-face{font-family:'%s';font-weight:%d;src:url(data:font/ttf;base64,%s)}",
			fam.Name, face.weight, base64.StdEncoding.EncodeToString(face.data))
	}
	b.WriteString("*{box-sizing:border-box;margin:0;padding:0}")
	b.WriteString("html,body{background:#fff}")
	fmt.Fprintf(&b, "#doc-root{width:%dpx;padding:%gpx;display:flex;gap:%gpx;align-items:flex-start;"+
		"font-family:'%s';color:%s;overflow-wrap:break-word}",
		paper.WidthPx, th.Margin(), th.Gap(), fam.Name, th.InkHex())

	widths := th.ZoneWidths(paper.WidthPx, l.Zones)
	for i, z := range l.Zones {
		fmt.Fprintf(&b, ".zone-%s{flex:0 0 %gpx;width:%gpx}", z.Zone, widths[i], widths[i])
	}

	for _, k := range cssKinds {
		s := th.Style(k)
		fmt.Fprintf(&b, ".k-%s{display:block;padding:%gpx 0 %gpx %gpx", k, s.Before, s.After, s.Indent)
		if s.Size > 0 {
			fmt.Fprintf(&b, ";font-size:%gpx;line-height:%gpx;white-space:pre-line", s.Size, s.LineHeight)
		}
		if s.Bold {
			b.WriteString(";font-weight:700")
		}
		b.WriteString("}")
	}

	fmt.Fprintf(&b, ".k-name,.k-heading{color:%s}", th.AccentHex())
	fmt.Fprintf(&b, ".k-heading{box-shadow:inset 0 -1px 0 %s}", th.Tint(0.7))
	b.WriteString(".k-meta{color:#555}a.k-meta{text-decoration:none}")
	fmt.Fprintf(&b, ".k-photo{width:%gpx;height:%gpx;padding:0;margin-bottom:%gpx;object-fit:cover}",
		PhotoSize, PhotoSize, th.Style(KindPhoto).After)
	b.WriteString(".k-bullet{position:relative}")
	b.WriteString(".k-bullet::before{content:'\\2022';position:absolute;left:3px}")
	fmt.Fprintf(&b, ".k-tags{display:flex;flex-wrap:wrap;gap:%gpx}", TagGap)
	tag := th.Style(KindTag)
	fmt.Fprintf(&b, ".k-tag{padding:0 %gpx;background:%s;border-radius:3px}", tag.PadX, th.Tint(0.85))

	for lv := 1; lv <= document.MaxSkillLevel; lv++ {
		fmt.Fprintf(&b, ".k-tag[data-level=\"%d\"]{box-shadow:inset %gpx -2px 0 %s}",
			lv, -float64(document.MaxSkillLevel-lv)*4, th.AccentHex())
	}
	return b.String()
}
