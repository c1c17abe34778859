package template

import (
	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/section"
)

const (
	zoneMain    = "main"
	zoneSidebar = "sidebar"
)

type placement struct {
	zone   string
	render fragment
}

// variant is a data-driven Renderer: every built-in template is one of these with its own
// key → zone/fragment map.
type variant struct {
	id         string
	name       string
	themeAware bool
	defaults   document.Theme
	zones      []ZoneSpec
	sections   map[string]placement
}

func (v *variant) ID() string        { return v.id }
func (v *variant) Name() string      { return v.name }
func (v *variant) ThemeAware() bool  { return v.themeAware }
func (v *variant) Zones() []ZoneSpec { return append([]ZoneSpec(nil), v.zones...) }

// Defaults returns the theme the variant uses when no override applies.
func (v *variant) Defaults() document.Theme { return v.defaults }

func (v *variant) Render(doc *document.Document, state section.State) *Layout {
	// stored state is read as-is; reconcile here so a key missing from the order still renders
	state = section.Normalize(state, doc.SectionKeys())
	theme := ResolveTheme(v.defaults, doc.Theme, v.themeAware)
	l := &Layout{TemplateID: v.id, Theme: theme}
	zones := make(map[string]*Node, len(v.zones))
	for _, z := range v.zones {
		n := &Node{Kind: KindZone, Zone: z.Name, Width: z.Width}
		zones[z.Name] = n
		l.Zones = append(l.Zones, n)
	}

	for _, key := range section.EffectiveOrder(state.Visibility, state.Order) {
		if _, ok := document.ParseCustomKey(key); ok {
			// positioned by the customSections block
			continue
		}
		p, ok := v.sections[key]
		if !ok {
			l.Diagnostics = append(l.Diagnostics, errcode.Diagnostic{
				Code:    errcode.UnknownSectionKey,
				Message: "section skipped by template " + v.id,
				Key:     key,
			})
			continue
		}
		if !state.Visibility.Visible(key) {
			continue
		}
		zone := zones[p.zone]
		if key == document.KeyCustomSections {
			for i := range doc.CustomSections {
				cs := &doc.CustomSections[i]
				ck := document.CustomKey(cs.ID)
				if !state.Visibility.Visible(ck) {
					continue
				}
				if n := customBlock(cs); n != nil {
					n.Section = ck
					zone.add(n)
				}
			}
			continue
		}
		if n := p.render(doc, theme); n != nil {
			n.Kind = KindSection
			n.Section = key
			zone.add(n)
		}
	}
	return l
}

// standard returns the usual key map with every section in zone main.
func standard(overrides map[string]placement) map[string]placement {
	m := map[string]placement{
		document.KeyPersonalInfo:   {zoneMain, header(true)},
		document.KeySummary:        {zoneMain, summary(defaultHeadings[document.KeySummary])},
		document.KeyExperience:     {zoneMain, experience(defaultHeadings[document.KeyExperience], false)},
		document.KeyEducation:      {zoneMain, education(defaultHeadings[document.KeyEducation])},
		document.KeySkills:         {zoneMain, skillTags(defaultHeadings[document.KeySkills])},
		document.KeyInterests:      {zoneMain, interests(defaultHeadings[document.KeyInterests])},
		document.KeyLanguages:      {zoneMain, languages(defaultHeadings[document.KeyLanguages])},
		document.KeyCustomSections: {zone: zoneMain},
	}
	for k, p := range overrides {
		m[k] = p
	}
	return m
}

func builtins() []Renderer {
	return []Renderer{
		&variant{
			id:         "classic",
			name:       "Classic",
			themeAware: true,
			defaults:   document.Theme{AccentColor: "#2b6cb0", FontFamily: "Go", Density: document.DensityNormal},
			zones:      []ZoneSpec{{zoneMain, 1}},
			sections:   standard(nil),
		},
		&variant{
			id:         "modern",
			name:       "Modern",
			themeAware: true,
			defaults:   document.Theme{AccentColor: "#0f766e", FontFamily: "Go", Density: document.DensityNormal},
			zones:      []ZoneSpec{{zoneSidebar, 0.32}, {zoneMain, 0.68}},
			sections: standard(map[string]placement{
				document.KeyPersonalInfo: {zoneSidebar, header(true)},
				document.KeySkills:       {zoneSidebar, skillTags("Skills")},
				document.KeyLanguages:    {zoneSidebar, languages("Languages")},
				document.KeyInterests:    {zoneSidebar, interests("Interests")},
			}),
		},
		&variant{
			id:         "timeline",
			name:       "Timeline",
			themeAware: true,
			defaults:   document.Theme{AccentColor: "#7c3aed", FontFamily: "Go", Density: document.DensityNormal},
			zones:      []ZoneSpec{{zoneSidebar, 0.28}, {zoneMain, 0.72}},
			sections: standard(map[string]placement{
				document.KeyPersonalInfo: {zoneSidebar, header(true)},
				document.KeyLanguages:    {zoneSidebar, languages("Languages")},
				document.KeyExperience:   {zoneMain, experience("Career", true)},
				document.KeySummary:      {zoneMain, summary("Profile")},
			}),
		},
		&variant{
			id:         "compact",
			name:       "Compact",
			themeAware: true,
			defaults:   document.Theme{AccentColor: "#b45309", FontFamily: "Go", Density: document.DensityCompact},
			zones:      []ZoneSpec{{zoneMain, 0.7}, {zoneSidebar, 0.3}},
			sections: standard(map[string]placement{
				document.KeyPersonalInfo: {zoneMain, header(false)},
				document.KeySkills:       {zoneSidebar, skillTags("Skills")},
				document.KeyLanguages:    {zoneSidebar, languages("Languages")},
				document.KeyInterests:    {zoneSidebar, interests("Interests")},
			}),
		},
		&variant{
			id:       "executive",
			name:     "Executive",
			defaults: document.Theme{AccentColor: "#1f2a44", FontFamily: "Go Medium", Density: document.DensityComfortable},
			zones:    []ZoneSpec{{zoneMain, 1}},
			sections: standard(map[string]placement{
				document.KeyPersonalInfo: {zoneMain, header(false)},
				document.KeySummary:      {zoneMain, summary("Executive Profile")},
				document.KeyExperience:   {zoneMain, experience("Leadership Experience", false)},
			}),
		},
		&variant{
			id:       "mono",
			name:     "Mono",
			defaults: document.Theme{AccentColor: "#333333", FontFamily: "Go Mono", Density: document.DensityNormal},
			zones:    []ZoneSpec{{zoneSidebar, 0.3}, {zoneMain, 0.7}},
			sections: standard(map[string]placement{
				document.KeyPersonalInfo: {zoneSidebar, header(false)},
				document.KeySkills:       {zoneSidebar, skillLines("Skills")},
			}),
		},
	}
}
