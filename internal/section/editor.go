package section

import (
	"fmt"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
)

// Editor applies section operations to one document and reports no-op requests as diagnostics.
// It is not safe for concurrent use.
type Editor struct {
	doc      *document.Document
	state    State
	reporter errcode.Reporter
}

// NewEditor normalizes state against doc's sections and returns an editor over both.
func NewEditor(doc *document.Document, state State, reporter errcode.Reporter) *Editor {
	return &Editor{
		doc:      doc,
		state:    Normalize(state, doc.SectionKeys()),
		reporter: errcode.OrDiscard(reporter),
	}
}

// State returns the current state. The returned maps and slices must not be modified.
func (e *Editor) State() State { return e.state }

// Toggle flips the visibility of key.
func (e *Editor) Toggle(key string) bool {
	v, ok := Toggle(e.state.Visibility, e.doc.SectionKeys(), key)
	if !ok {
		e.reporter.Report(errcode.Diagnostic{
			Code:    errcode.UnknownSectionKey,
			Message: "toggle ignored: unknown section",
			Key:     key,
		})
		return false
	}
	e.state.Visibility = v
	return true
}

// Move shifts the section at index one position in direction.
func (e *Editor) Move(index, direction int) bool {
	order, ok := Move(e.state.Order, index, direction)
	if !ok {
		e.reporter.Report(errcode.Diagnostic{
			Code:    errcode.InvalidReorderIndex,
			Message: fmt.Sprintf("move ignored: index %d direction %d", index, direction),
		})
		return false
	}
	e.state.Order = order
	return true
}

// MoveKey shifts the section named key one position in direction.
func (e *Editor) MoveKey(key string, direction int) bool {
	for i, k := range e.state.Order {
		if k == key {
			return e.Move(i, direction)
		}
	}
	e.reporter.Report(errcode.Diagnostic{
		Code:    errcode.UnknownSectionKey,
		Message: "move ignored: section not in order",
		Key:     key,
	})
	return false
}

// Sync re-normalizes after the document's section set changed, e.g. a custom section was added.
func (e *Editor) Sync() {
	e.state = Normalize(e.state, e.doc.SectionKeys())
}

// Prune removes keys of deleted sections.
func (e *Editor) Prune() {
	e.state = Prune(e.state, e.doc.SectionKeys())
}
