// Package template holds the closed set of document layouts and the registry that selects one.
//
// A Renderer turns a document plus its section state into a Layout: a tree of tagged nodes grouped
// into zones (columns). The tree carries no pixel geometry beyond zone widths and the resolved
// theme; surfaces in the measure and browser packages decide where lines break.
package template

import (
	"sort"
	"sync"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/section"
)

// Kind tags a node with its typographic role.
type Kind string

const (
	KindZone     Kind = "zone"
	KindSection  Kind = "section"
	KindHeading  Kind = "heading"
	KindName     Kind = "name"
	KindHeadline Kind = "headline"
	KindPhoto    Kind = "photo"
	KindItem     Kind = "item"
	KindTitle    Kind = "title"
	KindMeta     Kind = "meta"
	KindText     Kind = "text"
	KindBullet   Kind = "bullet"
	KindTags     Kind = "tags"
	KindTag      Kind = "tag"
)

// Node is one element of a rendered layout.
type Node struct {
	Kind Kind
	// Section is the section key of KindSection nodes.
	Section string
	// Zone is the zone name of KindZone nodes; Width is its share of the content box.
	Zone  string
	Width float64

	Text  string
	Href  string
	Level int
	Image []byte

	Children []*Node
}

func (n *Node) add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Walk calls fn for n and every descendant in document order. Returning false skips the children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// ZoneSpec describes one column of a variant.
type ZoneSpec struct {
	Name  string  `json:"name"`
	Width float64 `json:"width"`
}

// Layout is the output of a Renderer.
type Layout struct {
	TemplateID string
	Theme      ResolvedTheme
	Zones      []*Node
	// Diagnostics lists conditions skipped during rendering, such as unknown section keys.
	Diagnostics []errcode.Diagnostic
}

// Sections returns the section keys rendered into the layout, in zone then document order.
func (l *Layout) Sections() []string {
	var keys []string
	for _, z := range l.Zones {
		for _, c := range z.Children {
			if c.Kind == KindSection {
				keys = append(keys, c.Section)
			}
		}
	}
	return keys
}

// Zone returns the zone node named name.
func (l *Layout) Zone(name string) (*Node, bool) {
	for _, z := range l.Zones {
		if z.Zone == name {
			return z, true
		}
	}
	return nil, false
}

// Renderer is one visual variant.
type Renderer interface {
	ID() string
	Name() string
	// ThemeAware reports whether user theme overrides apply; static variants ignore them.
	ThemeAware() bool
	Zones() []ZoneSpec
	// Render lays doc out. state may be raw stored state; implementations normalize it against
	// doc.SectionKeys() first.
	Render(doc *document.Document, state section.State) *Layout
}

// Registry maps template ids to renderers. It always resolves to a renderer: unknown ids fall back
// to the default variant.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
	fallback  string
	reporter  errcode.Reporter
}

// NewRegistry returns an empty registry whose fallback is defaultID. defaultID must be registered
// before Resolve is called.
func NewRegistry(defaultID string, reporter errcode.Reporter) *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
		fallback:  defaultID,
		reporter:  errcode.OrDiscard(reporter),
	}
}

// Default returns a registry holding every built-in variant with classic as the fallback.
func Default(reporter errcode.Reporter) *Registry {
	r := NewRegistry(document.DefaultTemplateID, reporter)
	for _, v := range builtins() {
		r.Register(v)
	}
	return r
}

// Register adds or replaces a renderer.
func (r *Registry) Register(rd Renderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[rd.ID()] = rd
}

func (r *Registry) Lookup(id string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.renderers[id]
	return rd, ok
}

// ResolveID returns the id Resolve would pick for id, without reporting.
func (r *Registry) ResolveID(id string) string {
	if _, ok := r.Lookup(id); ok {
		return id
	}
	return r.fallback
}

// Resolve returns the renderer for id, or the default renderer when id is unknown.
func (r *Registry) Resolve(id string) Renderer {
	return r.ResolveFor(id, r.reporter)
}

// ResolveFor is Resolve, reporting the fallback to reporter instead of the registry's own.
func (r *Registry) ResolveFor(id string, reporter errcode.Reporter) Renderer {
	if rd, ok := r.Lookup(id); ok {
		return rd
	}
	errcode.OrDiscard(reporter).Report(errcode.Diagnostic{
		Code:    errcode.UnknownTemplate,
		Message: "unknown template, using " + r.fallback,
		Key:     id,
	})
	rd, ok := r.Lookup(r.fallback)
	if !ok {
		panic("template: default renderer " + r.fallback + " not registered")
	}
	return rd
}

// Render resolves the document's template and renders it.
func (r *Registry) Render(doc *document.Document, state section.State) *Layout {
	return r.Resolve(doc.TemplateID).Render(doc, state)
}

// List returns every renderer sorted by id, the default first.
func (r *Registry) List() []Renderer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Renderer, 0, len(r.renderers))
	for _, rd := range r.renderers {
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].ID() == r.fallback) != (out[j].ID() == r.fallback) {
			return out[i].ID() == r.fallback
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}
