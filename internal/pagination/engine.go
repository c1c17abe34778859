package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"phCompose/internal/document"
	"phCompose/internal/errcode"
	"phCompose/internal/metrics"
	"phCompose/internal/section"
	"phCompose/internal/template"
)

var (
	// ErrSuperseded is returned by a pass that a newer Measure call replaced. It published nothing.
	ErrSuperseded = errors.New("pagination: measurement superseded")
	// ErrSurfaceUnavailable is returned when no measuring surface could be created.
	ErrSurfaceUnavailable = errors.New("pagination: measuring surface unavailable")
)

// Surface lays a layout out at the canonical page width and reports its natural height.
type Surface interface {
	Measure(ctx context.Context, l *template.Layout) (float64, error)
	Close() error
}

// SurfaceFactory creates the surface for one pass. The engine owns and closes it.
type SurfaceFactory func(ctx context.Context) (Surface, error)

type Phase int

const (
	Settled Phase = iota
	Measuring
)

func (p Phase) String() string {
	if p == Measuring {
		return "measuring"
	}
	return "settled"
}

// Input is what a measuring pass renders.
type Input struct {
	Document *document.Document
	State    section.State
}

// Engine turns inputs into published page layouts. Publication is level-triggered: subscribers
// hear about a pass only when the measured height changed.
type Engine struct {
	registry   *template.Registry
	newSurface SurfaceFactory
	pageHeight int
	reporter   errcode.Reporter
	logger     *slog.Logger

	mu         sync.Mutex
	phase      Phase
	gen        uint64
	cancel     context.CancelFunc
	last       Result
	lastHeight float64
	published  bool
	diags      []errcode.Diagnostic
	subs       []func(Result)

	// pubMu orders subscriber calls; pubGen is the newest pass they have seen. Never held with mu.
	pubMu  sync.Mutex
	pubGen uint64
}

// NewEngine returns an engine in the Settled phase with a one-page result.
func NewEngine(registry *template.Registry, newSurface SurfaceFactory, pageHeight int, reporter errcode.Reporter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry:   registry,
		newSurface: newSurface,
		pageHeight: pageHeight,
		reporter:   errcode.OrDiscard(reporter),
		logger:     logger,
		last:       Paginate(0, pageHeight),
	}
}

// Subscribe registers fn for every published result. fn runs on the measuring goroutine without
// any engine lock held; it may read Last, Phase and Diagnostics but must not call Measure.
func (e *Engine) Subscribe(fn func(Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Diagnostics returns what the newest settled pass reported: template fallback, skipped keys and
// measuring failures. Each pass replaces the previous list.
func (e *Engine) Diagnostics() []errcode.Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.diags)
}

// Last returns the most recently published result.
func (e *Engine) Last() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Measure renders in, measures it on a fresh surface and returns the resulting pages.
// published is true when the height changed and subscribers were notified. A newer call cancels
// this one, which then returns ErrSuperseded. Only surface creation failures escalate; a failed
// measurement keeps the previous result.
func (e *Engine) Measure(ctx context.Context, in Input) (res Result, published bool, err error) {
	start := time.Now()
	outcome := "unchanged"
	defer func() { metrics.ObserveMeasure(outcome, time.Since(start)) }()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	e.gen++
	gen := e.gen
	e.cancel = cancel
	e.phase = Measuring
	e.mu.Unlock()
	defer cancel()

	var pass errcode.Collector
	report := errcode.Tee(&pass, e.reporter)

	layout := e.registry.ResolveFor(in.Document.TemplateID, report).Render(in.Document, in.State)
	for _, d := range layout.Diagnostics {
		report.Report(d)
	}

	surface, err := e.newSurface(ctx)
	if err != nil {
		report.Report(errcode.Diagnostic{Code: errcode.SurfaceUnavailable, Message: err.Error()})
		if !e.settle(gen, pass.Diagnostics()) {
			outcome = "superseded"
			return Result{}, false, ErrSuperseded
		}
		outcome = "unavailable"
		return e.Last(), false, fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
	}
	height, mErr := surface.Measure(ctx, layout)
	if cErr := surface.Close(); cErr != nil {
		e.logger.Warn("close measuring surface failed", slog.Any("error", cErr))
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		outcome = "superseded"
		return Result{}, false, ErrSuperseded
	}
	e.phase = Settled
	e.cancel = nil
	if mErr != nil {
		last := e.last
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.diags = pass.Diagnostics()
			e.mu.Unlock()
			outcome = "cancelled"
			return last, false, ctxErr
		}
		d := errcode.Diagnostic{Code: errcode.SystemError, Message: "measure failed: " + mErr.Error()}
		pass.Report(d)
		e.diags = pass.Diagnostics()
		e.mu.Unlock()
		outcome = "failed"
		e.logger.Warn("measure layout failed, keeping previous pages",
			slog.String("template_id", layout.TemplateID),
			slog.Any("error", mErr),
		)
		e.reporter.Report(d)
		return last, false, nil
	}
	e.diags = pass.Diagnostics()
	if e.published && height == e.lastHeight {
		last := e.last
		e.mu.Unlock()
		return last, false, nil
	}

	res = Paginate(height, e.pageHeight)
	e.last = res
	e.lastHeight = height
	e.published = true
	subs := slices.Clone(e.subs)
	e.mu.Unlock()

	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if gen < e.pubGen {
		// a newer pass settled and notified while this one waited
		outcome = "superseded"
		return Result{}, false, ErrSuperseded
	}
	e.pubGen = gen

	outcome = "published"
	metrics.ObservePages(res.PageCount)
	for _, fn := range subs {
		fn(res)
	}
	return res, true, nil
}

// settle leaves the Measuring phase if gen is still the newest pass.
func (e *Engine) settle(gen uint64, diags []errcode.Diagnostic) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return false
	}
	e.phase = Settled
	e.cancel = nil
	e.diags = diags
	return true
}
