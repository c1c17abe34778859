package section

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
)

func TestMoveScenario(t *testing.T) {
	order := Order{document.KeyExperience, document.KeyEducation, document.KeySkills}
	got, ok := Move(order, 0, +1)
	if !ok {
		t.Fatal("move reported no-op")
	}
	want := Order{document.KeyEducation, document.KeyExperience, document.KeySkills}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if order[0] != document.KeyExperience {
		t.Fatal("Move mutated its input")
	}
}

func TestMoveBoundariesAreNoOps(t *testing.T) {
	order := Order{"a", "b", "c"}
	cases := []struct {
		name             string
		index, direction int
	}{
		{"first up", 0, -1},
		{"last down", len(order) - 1, +1},
		{"negative index", -1, +1},
		{"index past end", 3, -1},
		{"zero direction", 1, 0},
		{"jump", 0, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Move(order, tc.index, tc.direction)
			if ok {
				t.Fatal("expected no-op")
			}
			if diff := cmp.Diff(order, got); diff != "" {
				t.Fatalf("order changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMoveIsInvertible(t *testing.T) {
	order := Order{"a", "b", "c", "d"}
	down, _ := Move(order, 1, +1)
	back, _ := Move(down, 2, -1)
	if diff := cmp.Diff(order, back); diff != "" {
		t.Fatalf("move down then up should restore order (-want +got):\n%s", diff)
	}
}

func TestToggleIsSelfInverse(t *testing.T) {
	known := document.BuiltinKeys()
	v := Defaults(known).Visibility
	v[document.KeySkills] = false
	for _, k := range known {
		once, ok := Toggle(v, known, k)
		if !ok {
			t.Fatalf("toggle %q reported unknown", k)
		}
		if once[k] == v[k] {
			t.Fatalf("toggle %q did not flip", k)
		}
		twice, _ := Toggle(once, known, k)
		if diff := cmp.Diff(v, twice); diff != "" {
			t.Fatalf("toggle twice %q (-want +got):\n%s", k, diff)
		}
	}
}

func TestToggleWritesEntryForUnmigratedKey(t *testing.T) {
	known := document.BuiltinKeys()
	v := Visibility{document.KeyPersonalInfo: true}

	once, ok := Toggle(v, known, document.KeySkills)
	if !ok || once.Visible(document.KeySkills) {
		t.Fatalf("missing key should toggle to hidden: %v", once)
	}
	twice, _ := Toggle(once, known, document.KeySkills)
	want := Visibility{document.KeyPersonalInfo: true, document.KeySkills: true}
	if diff := cmp.Diff(want, twice); diff != "" {
		t.Fatalf("toggle twice (-want +got):\n%s", diff)
	}
	if _, ok := v[document.KeySkills]; ok {
		t.Fatal("input visibility was mutated")
	}
}

func TestToggleUnknownKeyIsNoOp(t *testing.T) {
	known := document.BuiltinKeys()
	v := Defaults(known).Visibility
	got, ok := Toggle(v, known, "custom:404")
	if ok {
		t.Fatal("unknown key should not toggle")
	}
	if diff := cmp.Diff(v, got); diff != "" {
		t.Fatalf("visibility changed (-want +got):\n%s", diff)
	}
}

func TestReconcileRestoresInvariant(t *testing.T) {
	cases := []State{
		{Visibility: Visibility{"a": true, "b": false, "c": true}, Order: Order{"c"}},
		{Visibility: Visibility{"a": true}, Order: nil},
		{Visibility: Visibility{"a": true, "b": true}, Order: Order{"b", "a", "b"}},
		{Visibility: Visibility{"a": true}, Order: Order{"ghost", "a"}},
		{Visibility: Visibility{}, Order: Order{}},
	}
	for _, s := range cases {
		once := State{Visibility: s.Visibility, Order: Reconcile(s.Visibility, s.Order)}
		if !Consistent(once) {
			t.Fatalf("reconcile(%v) = %v is inconsistent", s, once.Order)
		}
		twice := Reconcile(once.Visibility, once.Order)
		if diff := cmp.Diff(once.Order, twice); diff != "" {
			t.Fatalf("reconcile not idempotent (-once +twice):\n%s", diff)
		}
	}
}

func TestReconcileKeepsRelativeOrder(t *testing.T) {
	v := Visibility{"a": true, "b": true, "c": true, "d": true}
	got := Reconcile(v, Order{"c", "a"})
	want := Order{"c", "a", "b", "d"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestEffectiveOrderFallsBackToVisibilityKeys(t *testing.T) {
	v := Visibility{"skills": true, "experience": true}
	if diff := cmp.Diff(Order{"experience", "skills"}, EffectiveOrder(v, nil)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Order{"skills"}, EffectiveOrder(v, Order{"skills"})); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNormalizeMigratesMissingKeysAsVisible(t *testing.T) {
	d := document.New()
	csID := d.AddCustomSection(document.CustomSection{Title: "Talks"})
	s := State{
		Visibility: Visibility{document.KeyExperience: false},
		Order:      Order{document.KeyExperience},
	}
	got := Normalize(s, d.SectionKeys())
	if !Consistent(got) {
		t.Fatalf("normalized state inconsistent: %+v", got)
	}
	if got.Visibility[document.KeyExperience] {
		t.Fatal("existing entry overwritten")
	}
	if !got.Visibility[document.CustomKey(csID)] || !got.Visibility[document.KeySkills] {
		t.Fatalf("missing keys should default to visible: %+v", got.Visibility)
	}
	if got.Order[0] != document.KeyExperience {
		t.Fatalf("existing order not preserved: %v", got.Order)
	}
}

func TestDefaultsUseFixedKeyOrder(t *testing.T) {
	keys := document.BuiltinKeys()
	s := Defaults(keys)
	if diff := cmp.Diff(Order(keys), s.Order); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	for _, k := range keys {
		if !s.Visibility[k] {
			t.Fatalf("%q should be visible", k)
		}
	}
}

func TestPruneDropsDeletedSections(t *testing.T) {
	d := document.New()
	id := d.AddCustomSection(document.CustomSection{Title: "Awards"})
	s := Normalize(State{}, d.SectionKeys())
	d.RemoveCustomSection(id)
	pruned := Prune(s, d.SectionKeys())
	if _, ok := pruned.Visibility[document.CustomKey(id)]; ok {
		t.Fatal("visibility entry of deleted section kept")
	}
	if !Consistent(pruned) {
		t.Fatalf("pruned state inconsistent: %+v", pruned)
	}
}

func TestEditorReportsNoOps(t *testing.T) {
	d := document.New()
	var diags errcode.Collector
	ed := NewEditor(d, State{}, &diags)

	if ed.Move(0, -1) {
		t.Fatal("moving first section up should be a no-op")
	}
	if ed.Toggle("nope") {
		t.Fatal("toggling an unknown key should be a no-op")
	}
	if !ed.MoveKey(document.KeySummary, -1) {
		t.Fatal("moving summary up should succeed")
	}
	if ed.State().Order[0] != document.KeySummary {
		t.Fatalf("summary not first: %v", ed.State().Order)
	}

	got := diags.Diagnostics()
	if len(got) != 2 || got[0].Code != errcode.InvalidReorderIndex || got[1].Code != errcode.UnknownSectionKey {
		t.Fatalf("unexpected diagnostics: %+v", got)
	}
}

func TestEditorSyncPicksUpNewCustomSection(t *testing.T) {
	d := document.New()
	ed := NewEditor(d, State{}, nil)
	id := d.AddCustomSection(document.CustomSection{Title: "Volunteering"})
	if !ed.Toggle(document.CustomKey(id)) {
		t.Fatal("toggle of a newly added custom section should be recognized")
	}
	ed.Sync()
	if !Consistent(ed.State()) {
		t.Fatalf("state inconsistent after sync: %+v", ed.State())
	}
	if ed.State().Visibility[document.CustomKey(id)] {
		t.Fatal("toggled custom section should be hidden")
	}
}
