package template

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/section"
)

func normalized(d *document.Document) section.State {
	return section.Normalize(section.State{}, d.SectionKeys())
}

func TestNewDocumentRendersOnlyPersonalInfo(t *testing.T) {
	reg := Default(nil)
	for _, rd := range reg.List() {
		t.Run(rd.ID(), func(t *testing.T) {
			d := document.New()
			l := rd.Render(d, normalized(d))
			if diff := cmp.Diff([]string{document.KeyPersonalInfo}, l.Sections()); diff != "" {
				t.Fatalf("sections (-want +got):\n%s", diff)
			}
			if len(l.Diagnostics) != 0 {
				t.Fatalf("unexpected diagnostics: %+v", l.Diagnostics)
			}
		})
	}
}

func TestEmptySectionsAreSuppressed(t *testing.T) {
	d := document.New()
	d.PersonalInfo.FullName = "Ada"
	d.AddSkill(document.Skill{Name: "Go"})
	d.AddCustomSection(document.CustomSection{Title: "Empty"})
	l := Default(nil).Resolve("classic").Render(d, normalized(d))
	want := []string{document.KeyPersonalInfo, document.KeySkills}
	if diff := cmp.Diff(want, l.Sections()); diff != "" {
		t.Fatalf("sections (-want +got):\n%s", diff)
	}
}

func TestHiddenSectionsAreSkipped(t *testing.T) {
	d, state := Sample()
	state.Visibility = state.Visibility.Clone()
	state.Visibility[document.KeyExperience] = false
	l := Default(nil).Resolve("classic").Render(d, state)
	for _, k := range l.Sections() {
		if k == document.KeyExperience {
			t.Fatal("hidden experience rendered")
		}
	}
}

func TestSectionOrderFollowsState(t *testing.T) {
	d, state := Sample()
	state.Order, _ = section.Move(state.Order, 2, -1) // experience above summary
	l := Default(nil).Resolve("classic").Render(d, state)
	got := l.Sections()
	if got[1] != document.KeyExperience || got[2] != document.KeySummary {
		t.Fatalf("order not applied: %v", got)
	}
}

func TestCustomSectionsExpandAtBlockPosition(t *testing.T) {
	d := document.New()
	d.AddSkill(document.Skill{Name: "Go"})
	a := d.AddCustomSection(document.CustomSection{Title: "Talks", Items: []document.CustomItem{{Title: "x"}}})
	b := d.AddCustomSection(document.CustomSection{Title: "Awards", Items: []document.CustomItem{{Title: "y"}}})
	c := d.AddCustomSection(document.CustomSection{Title: "Hidden", Items: []document.CustomItem{{Title: "z"}}})
	state := normalized(d)
	state.Visibility[document.CustomKey(c)] = false
	// custom block first, and per-section keys placed last must not matter
	state.Order, _ = section.Move(state.Order, 7, -1)
	for i := 6; i > 0; i-- {
		state.Order, _ = section.Move(state.Order, i, -1)
	}

	l := Default(nil).Resolve("classic").Render(d, state)
	want := []string{document.CustomKey(a), document.CustomKey(b), document.KeyPersonalInfo, document.KeySkills}
	if diff := cmp.Diff(want, l.Sections()); diff != "" {
		t.Fatalf("sections (-want +got):\n%s", diff)
	}
}

func TestStaleOrderStillRendersVisibleSections(t *testing.T) {
	d := document.New()
	d.PersonalInfo.FullName = "Ada"
	d.AddSkill(document.Skill{Name: "Go"})
	d.AddLanguage(document.Language{Name: "English"})
	state := section.State{
		Visibility: section.Visibility{
			document.KeyPersonalInfo: true,
			document.KeySkills:       true,
			document.KeyLanguages:    true,
		},
		Order: section.Order{document.KeyPersonalInfo},
	}
	for _, rd := range Default(nil).List() {
		t.Run(rd.ID(), func(t *testing.T) {
			got := rd.Render(d, state).Sections()
			for _, k := range []string{document.KeyPersonalInfo, document.KeySkills, document.KeyLanguages} {
				if !slices.Contains(got, k) {
					t.Fatalf("section %q missing from %v", k, got)
				}
			}
			if got[0] != document.KeyPersonalInfo {
				t.Fatalf("stored order not kept: %v", got)
			}
		})
	}
	if len(state.Order) != 1 {
		t.Fatal("render mutated the caller's state")
	}
}

func TestUnknownKeysAreSkippedAndReported(t *testing.T) {
	d := document.New()
	state := normalized(d)
	state.Visibility["legacyWidget"] = true
	state.Order = append(state.Order, "legacyWidget")
	l := Default(nil).Resolve("modern").Render(d, state)
	if len(l.Diagnostics) != 1 || l.Diagnostics[0].Code != errcode.UnknownSectionKey || l.Diagnostics[0].Key != "legacyWidget" {
		t.Fatalf("diagnostics = %+v", l.Diagnostics)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	var diags errcode.Collector
	reg := Default(&diags)
	if got := reg.Resolve("does-not-exist").ID(); got != document.DefaultTemplateID {
		t.Fatalf("resolved %q, want default", got)
	}
	got := diags.Diagnostics()
	if len(got) != 1 || got[0].Code != errcode.UnknownTemplate || got[0].Key != "does-not-exist" {
		t.Fatalf("diagnostics = %+v", got)
	}
	if _, ok := reg.Lookup("does-not-exist"); ok {
		t.Fatal("lookup of unknown id succeeded")
	}
}

func TestListPutsDefaultFirst(t *testing.T) {
	var ids []string
	for _, rd := range Default(nil).List() {
		ids = append(ids, rd.ID())
	}
	want := []string{"classic", "compact", "executive", "modern", "mono", "timeline"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestSidebarPlacement(t *testing.T) {
	d, state := Sample()
	l := Default(nil).Resolve("modern").Render(d, state)
	side, ok := l.Zone(zoneSidebar)
	if !ok {
		t.Fatal("modern has no sidebar")
	}
	var keys []string
	for _, n := range side.Children {
		keys = append(keys, n.Section)
	}
	want := []string{document.KeyPersonalInfo, document.KeySkills, document.KeyInterests, document.KeyLanguages}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("sidebar (-want +got):\n%s", diff)
	}
}

func TestThemeOverrides(t *testing.T) {
	d, state := Sample()
	d.Theme = document.Theme{AccentColor: "#ff0000", FontFamily: "Go Mono", Density: document.DensityCompact}
	reg := Default(nil)

	aware := reg.Resolve("classic").Render(d, state).Theme
	if aware.AccentHex() != "#ff0000" || aware.FontFamily != "Go Mono" || aware.Density != document.DensityCompact {
		t.Fatalf("theme-aware variant ignored override: %+v", aware)
	}

	static := reg.Resolve("executive").Render(d, state).Theme
	if static.AccentHex() != "#1f2a44" || static.FontFamily != "Go Medium" || static.Density != document.DensityComfortable {
		t.Fatalf("static variant applied override: %+v", static)
	}
}

func TestResolveThemeFallbacks(t *testing.T) {
	defaults := document.Theme{AccentColor: "#2b6cb0", FontFamily: "Go"}
	th := ResolveTheme(defaults, document.Theme{AccentColor: "not-a-color", FontFamily: "Comic Sans"}, true)
	if th.AccentHex() != "#2b6cb0" || th.FontFamily != "Go" || th.Density != document.DensityNormal {
		t.Fatalf("fallbacks not applied: %+v", th)
	}
	if got := th.Space(10); got != 10 {
		t.Fatalf("Space(10) at density 1 = %v", got)
	}
	compact := ResolveTheme(defaults, document.Theme{Density: document.DensityCompact}, true)
	if got := compact.Space(40); got != 30 {
		t.Fatalf("Space(40) at density 0.75 = %v", got)
	}
}

func TestLayoutHTML(t *testing.T) {
	d, state := Sample()
	d.PersonalInfo.Website = "javascript:alert(1)"
	var buf bytes.Buffer
	if err := Default(nil).Resolve("timeline").Render(d, state).HTML(&buf); err != nil {
		t.Fatalf("html: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`id="doc-root"`, `data-section="experience"`, "Alex Morgan", "width:794px"} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(out, `href="javascript:`) {
		t.Error("unsafe href rendered")
	}
}
