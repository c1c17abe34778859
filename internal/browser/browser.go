// Package browser renders layouts in headless Chromium: height measurement for pagination,
// print-to-PDF export and page thumbnails.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"phCompose/internal/paper"
	"phCompose/internal/template"
)

var ErrClosed = errors.New("browser: launcher closed")

// Options configures the Chromium process.
type Options struct {
	// Bin is the Chromium executable. Empty means look it up on PATH, then let rod download one.
	Bin     string
	Timeout time.Duration
}

// Launcher owns one Chromium process shared by every page it opens. It connects lazily.
type Launcher struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
	closed  bool
}

func NewLauncher(opts Options, logger *slog.Logger) *Launcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{opts: opts, logger: logger}
}

func (l *Launcher) connect() (*rod.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.browser != nil {
		return l.browser, nil
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	if l.opts.Bin != "" {
		launch = launch.Bin(l.opts.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	l.logger.Info("Launching headless chromium...")
	controlURL, err := launch.Launch()
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	l.launch, l.browser = launch, b
	return b, nil
}

// Close shuts the Chromium process down. Pages still open fail afterwards.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.browser == nil {
		return nil
	}
	err := l.browser.Close()
	l.launch.Cleanup()
	l.browser, l.launch = nil, nil
	return err
}

// page opens a blank tab sized to one canonical page.
func (l *Launcher) page(ctx context.Context) (*rod.Page, error) {
	b, err := l.connect()
	if err != nil {
		return nil, err
	}
	p, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             paper.WidthPx,
		Height:            paper.HeightPx,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return p, nil
}

// load replaces the page content with l and waits for fonts.
func (l *Launcher) load(ctx context.Context, p *rod.Page, layout *template.Layout) (*rod.Page, error) {
	var buf bytes.Buffer
	if err := layout.HTML(&buf); err != nil {
		return nil, err
	}
	p = p.Context(ctx).Timeout(l.opts.Timeout)
	if err := p.SetDocumentContent(buf.String()); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	// 等待内嵌字体就绪，避免回退字体度量导致高度偏差
	if _, err := p.Eval(`() => document.fonts && document.fonts.ready ? document.fonts.ready.then(() => true) : true`); err != nil {
		l.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", err))
	}
	return p, nil
}

// Surface measures layouts in one browser tab.
type Surface struct {
	l    *Launcher
	page *rod.Page
}

// NewSurface opens a tab for one measuring pass.
func (l *Launcher) NewSurface(ctx context.Context) (*Surface, error) {
	p, err := l.page(ctx)
	if err != nil {
		return nil, err
	}
	return &Surface{l: l, page: p}, nil
}

// Measure returns the natural height of #doc-root.
func (s *Surface) Measure(ctx context.Context, layout *template.Layout) (float64, error) {
	p, err := s.l.load(ctx, s.page, layout)
	if err != nil {
		return 0, err
	}
	res, err := p.Eval(`() => document.getElementById('doc-root').getBoundingClientRect().height`)
	if err != nil {
		return 0, fmt.Errorf("measure doc-root: %w", err)
	}
	return res.Value.Num(), nil
}

func (s *Surface) Close() error {
	return s.page.Close()
}

// PDF prints layout at A4 paper size with no margins; the page root carries its own padding.
func (l *Launcher) PDF(ctx context.Context, layout *template.Layout) ([]byte, error) {
	p, err := l.page(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = p.Close()
	}()
	if p, err = l.load(ctx, p, layout); err != nil {
		return nil, err
	}
	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(p); err != nil {
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	reader, err := p.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(paper.WidthInches),
		PaperHeight:       float64Ptr(paper.HeightInches),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

// Thumbnail captures the first page of layout as a JPEG.
func (l *Launcher) Thumbnail(ctx context.Context, layout *template.Layout, quality int) ([]byte, error) {
	p, err := l.page(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = p.Close()
	}()
	if p, err = l.load(ctx, p, layout); err != nil {
		return nil, err
	}

	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(quality),
		Clip: &proto.PageViewport{
			Width:  paper.WidthPx,
			Height: paper.HeightPx,
			Scale:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
