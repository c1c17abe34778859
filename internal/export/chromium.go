package export

import (
	"context"
	"fmt"

	"phCompose/internal/browser"
	"phCompose/internal/pagination"
	"phCompose/internal/paper"
	"phCompose/internal/template"
)

// Chromium prints the layout HTML with headless Chromium.
type Chromium struct {
	registry *template.Registry
	launcher *browser.Launcher
}

func NewChromium(registry *template.Registry, launcher *browser.Launcher) *Chromium {
	return &Chromium{registry: registry, launcher: launcher}
}

func (c *Chromium) Export(ctx context.Context, req Request) (*Output, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	layout := render(c.registry, req)

	surface, err := c.launcher.NewSurface(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pagination.ErrSurfaceUnavailable, err)
	}
	height, err := surface.Measure(ctx, layout)
	_ = surface.Close()
	if err != nil {
		return nil, fmt.Errorf("measure layout: %w", err)
	}

	data, err := c.launcher.PDF(ctx, layout)
	if err != nil {
		return nil, err
	}
	return &Output{
		Data:        data,
		ContentType: ContentTypePDF,
		TemplateID:  layout.TemplateID,
		Diagnostics: layout.Diagnostics,
		Pages:       pagination.Paginate(height, paper.HeightPx),
	}, nil
}
