package template

import (
	"fmt"
	"strings"

	"phCompose/internal/document"
)

// fragment renders one section. It returns nil when the section has nothing to show.
type fragment func(doc *document.Document, th ResolvedTheme) *Node

var defaultHeadings = map[string]string{
	document.KeySummary:    "Summary",
	document.KeyExperience: "Experience",
	document.KeyEducation:  "Education",
	document.KeySkills:     "Skills",
	document.KeyInterests:  "Interests",
	document.KeyLanguages:  "Languages",
}

func heading(text string) *Node {
	return &Node{Kind: KindHeading, Text: text}
}

func leaf(k Kind, text string) *Node {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &Node{Kind: k, Text: text}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func dateRange(start, end string, current bool) string {
	if current {
		end = "Present"
	}
	if start == "" || end == "" {
		return joinNonEmpty("", start, end)
	}
	return start + " – " + end
}

// header renders the personal info block. It is emitted even when every field is blank so a new
// document still shows where the name goes.
func header(withPhoto bool) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		p := doc.PersonalInfo
		n := &Node{Kind: KindSection}
		if withPhoto && len(p.Photo) > 0 {
			n.add(&Node{Kind: KindPhoto, Image: p.Photo})
		}
		n.add(
			leaf(KindName, p.FullName),
			leaf(KindHeadline, p.Headline),
			leaf(KindMeta, joinNonEmpty(" · ", p.Email, p.Phone, p.Location)),
		)
		if p.Website != "" {
			n.add(&Node{Kind: KindMeta, Text: p.Website, Href: p.Website})
		}
		for _, f := range p.CustomFields {
			text := joinNonEmpty(": ", f.Label, f.Value)
			if text == "" {
				continue
			}
			m := &Node{Kind: KindMeta, Text: text}
			if f.IsURL {
				m.Href = f.Value
			}
			n.add(m)
		}
		return n
	}
}

func summary(title string) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		text := leaf(KindText, doc.PersonalInfo.Summary)
		if text == nil {
			return nil
		}
		return (&Node{Kind: KindSection}).add(heading(title), text)
	}
}

// experience renders jobs. With datesFirst the date range leads each entry, as on a timeline.
func experience(title string, datesFirst bool) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		if len(doc.Experience) == 0 {
			return nil
		}
		n := (&Node{Kind: KindSection}).add(heading(title))
		for _, e := range doc.Experience {
			dates := dateRange(e.StartDate, e.EndDate, e.Current)
			it := &Node{Kind: KindItem}
			if datesFirst {
				it.add(
					leaf(KindMeta, dates),
					leaf(KindTitle, joinNonEmpty(", ", e.Position, e.Company)),
					leaf(KindMeta, e.Location),
				)
			} else {
				it.add(
					leaf(KindTitle, e.Position),
					leaf(KindMeta, joinNonEmpty(" · ", e.Company, e.Location, dates)),
				)
			}
			it.add(leaf(KindText, e.Description))
			for _, h := range e.Highlights {
				it.add(leaf(KindBullet, h))
			}
			n.add(it)
		}
		return n
	}
}

func education(title string) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		if len(doc.Education) == 0 {
			return nil
		}
		n := (&Node{Kind: KindSection}).add(heading(title))
		for _, e := range doc.Education {
			n.add((&Node{Kind: KindItem}).add(
				leaf(KindTitle, e.Institution),
				leaf(KindMeta, joinNonEmpty(" · ",
					joinNonEmpty(", ", e.Degree, e.Field),
					dateRange(e.StartDate, e.EndDate, false),
					e.Score,
				)),
				leaf(KindText, e.Description),
			))
		}
		return n
	}
}

// skillTags renders skills as tags carrying their level.
func skillTags(title string) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		if len(doc.Skills) == 0 {
			return nil
		}
		tags := &Node{Kind: KindTags}
		for _, s := range doc.Skills {
			if t := leaf(KindTag, s.Name); t != nil {
				t.Level = s.Level
				tags.add(t)
			}
		}
		return (&Node{Kind: KindSection}).add(heading(title), tags)
	}
}

// skillLines renders one line per skill with a textual level, for fixed-pitch variants.
func skillLines(title string) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		if len(doc.Skills) == 0 {
			return nil
		}
		n := (&Node{Kind: KindSection}).add(heading(title))
		for _, s := range doc.Skills {
			text := s.Name
			if s.Level > 0 {
				text = fmt.Sprintf("%s [%s%s]", s.Name,
					strings.Repeat("#", s.Level), strings.Repeat(".", document.MaxSkillLevel-s.Level))
			}
			n.add(leaf(KindMeta, text))
		}
		return n
	}
}

func interests(title string) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		if len(doc.Interests) == 0 {
			return nil
		}
		tags := &Node{Kind: KindTags}
		for _, i := range doc.Interests {
			tags.add(leaf(KindTag, i.Name))
		}
		return (&Node{Kind: KindSection}).add(heading(title), tags)
	}
}

func languages(title string) fragment {
	return func(doc *document.Document, _ ResolvedTheme) *Node {
		if len(doc.Languages) == 0 {
			return nil
		}
		n := (&Node{Kind: KindSection}).add(heading(title))
		for _, l := range doc.Languages {
			n.add(leaf(KindMeta, joinNonEmpty(" · ", l.Name, l.Proficiency)))
		}
		return n
	}
}

// customBlock renders one custom section; sections without items render nothing.
func customBlock(cs *document.CustomSection) *Node {
	if len(cs.Items) == 0 {
		return nil
	}
	n := (&Node{Kind: KindSection}).add(heading(cs.Title))
	for _, it := range cs.Items {
		n.add((&Node{Kind: KindItem}).add(
			leaf(KindTitle, it.Title),
			leaf(KindMeta, joinNonEmpty(" · ", it.Subtitle, it.Date)),
			leaf(KindText, it.Description),
		))
	}
	return n
}
