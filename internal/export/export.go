// Package export produces print-ready PDFs whose page breaks match the live preview.
package export

import (
	"context"
	"errors"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/pagination"
	"phCompose/internal/section"
	"phCompose/internal/template"
)

const ContentTypePDF = "application/pdf"

var ErrNoDocument = errors.New("export: request has no document")

// Request names what to export. The template comes from the document.
type Request struct {
	Document *document.Document
	State    section.State
}

// Output is a finished export.
type Output struct {
	Data        []byte
	ContentType string
	TemplateID  string
	Pages       pagination.Result
	// Diagnostics are the recoverable problems met while rendering, e.g. unknown section keys.
	Diagnostics []errcode.Diagnostic
}

// Exporter turns a document into a file.
type Exporter interface {
	Export(ctx context.Context, req Request) (*Output, error)
}

func (r Request) validate() error {
	if r.Document == nil {
		return ErrNoDocument
	}
	return nil
}

// render lays out req with its template, noting on the layout when the template fell back.
func render(registry *template.Registry, req Request) *template.Layout {
	var fallback errcode.Collector
	layout := registry.ResolveFor(req.Document.TemplateID, &fallback).Render(req.Document, req.State)
	layout.Diagnostics = append(layout.Diagnostics, fallback.Diagnostics()...)
	return layout
}
