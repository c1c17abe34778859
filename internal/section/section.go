// Package section keeps per-document section visibility and display order consistent.
//
// Every operation is pure: it returns new values and never mutates its arguments, so callers can
// diff the old and new state for undo.
package section

import (
	"slices"
	"sort"
)

// Visibility maps a section key to whether it is shown.
type Visibility map[string]bool

// Order is the display order of section keys.
type Order []string

// State is the persisted visibility/order pair of one document.
type State struct {
	Visibility Visibility `json:"visibility"`
	Order      Order      `json:"order"`
}

// Visible reports whether key is shown. Keys without an entry are visible.
func (v Visibility) Visible(key string) bool {
	shown, ok := v[key]
	return !ok || shown
}

// Clone returns an independent copy of v.
func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for k, shown := range v {
		out[k] = shown
	}
	return out
}

// Keys returns the keys of v in sorted order.
func (v Visibility) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Defaults returns the state of a new document: every key visible, ordered as given.
func Defaults(keys []string) State {
	v := make(Visibility, len(keys))
	for _, k := range keys {
		v[k] = true
	}
	return State{Visibility: v, Order: slices.Clone(Order(keys))}
}

// Toggle flips the visibility of key. Keys outside known are left alone and reported with ok=false.
//
// A known key without an entry counts as visible, so the first toggle writes an explicit false and
// the second an explicit true. Toggling twice restores v only when v already has an entry for key,
// which holds for every state that went through Migrate or Normalize.
func Toggle(v Visibility, known []string, key string) (Visibility, bool) {
	out := v.Clone()
	if !slices.Contains(known, key) {
		return out, false
	}
	out[key] = !v.Visible(key)
	return out, true
}

// Move swaps order[index] with its neighbour in direction (-1 up, +1 down).
// Out-of-range moves return an unchanged copy with ok=false.
func Move(order Order, index, direction int) (Order, bool) {
	out := slices.Clone(order)
	if direction != -1 && direction != 1 {
		return out, false
	}
	target := index + direction
	if index < 0 || index >= len(out) || target < 0 || target >= len(out) {
		return out, false
	}
	out[index], out[target] = out[target], out[index]
	return out, true
}

// Reconcile appends every key of v that order lacks. Existing keys keep their relative order;
// appended keys follow in sorted order. Duplicates and keys without a visibility entry are
// dropped, so the result holds exactly the keys of v. Reconciling a consistent pair returns an
// equal order.
func Reconcile(v Visibility, order Order) Order {
	out := make(Order, 0, len(v))
	seen := make(map[string]struct{}, len(order))
	for _, k := range order {
		if _, dup := seen[k]; dup {
			continue
		}
		if _, ok := v[k]; !ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range v.Keys() {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// EffectiveOrder returns order, or the sorted visibility keys when order is empty, so renderers
// always have a total order to iterate.
func EffectiveOrder(v Visibility, order Order) Order {
	if len(order) > 0 {
		return slices.Clone(order)
	}
	return Order(v.Keys())
}

// Migrate adds a visible entry for every known key missing from v.
func Migrate(v Visibility, known []string) Visibility {
	out := v.Clone()
	for _, k := range known {
		if _, ok := out[k]; !ok {
			out[k] = true
		}
	}
	return out
}

// Normalize runs the load-time pass: Migrate against known keys, then Reconcile the order.
// Known keys missing from the order are appended in known order before any other key.
func Normalize(s State, known []string) State {
	v := Migrate(s.Visibility, known)
	order := slices.Clone(s.Order)
	for _, k := range known {
		if !slices.Contains(order, k) {
			order = append(order, k)
		}
	}
	return State{Visibility: v, Order: Reconcile(v, order)}
}

// Prune drops keys that no longer correspond to a known section. It is optional: renderers skip
// unknown keys anyway.
func Prune(s State, known []string) State {
	v := make(Visibility, len(s.Visibility))
	for k, shown := range s.Visibility {
		if slices.Contains(known, k) {
			v[k] = shown
		}
	}
	order := make(Order, 0, len(s.Order))
	for _, k := range s.Order {
		if slices.Contains(known, k) {
			order = append(order, k)
		}
	}
	return State{Visibility: v, Order: order}
}

// Consistent reports whether the order and visibility key sets are equal and the order has no duplicates.
func Consistent(s State) bool {
	if len(s.Order) != len(s.Visibility) {
		return false
	}
	seen := make(map[string]struct{}, len(s.Order))
	for _, k := range s.Order {
		if _, dup := seen[k]; dup {
			return false
		}
		if _, ok := s.Visibility[k]; !ok {
			return false
		}
		seen[k] = struct{}{}
	}
	return true
}
