// Package preview drives live pagination for one open document. Content edits and container
// resizes arrive as independent streams; content re-measures, resize only re-scales.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"phCompose/internal/errcode"
	"phCompose/internal/pagination"
	"phCompose/internal/viewport"
)

// Snapshot is what the client draws: the page breaks, the scaled page stack and what the last
// measured content reported.
type Snapshot struct {
	Pages       pagination.Result    `json:"pages"`
	Frame       viewport.Frame       `json:"frame"`
	Diagnostics []errcode.Diagnostic `json:"diagnostics,omitempty"`
}

func (s Snapshot) equal(o Snapshot) bool {
	return s.Frame == o.Frame && s.Pages.Equal(o.Pages) && slices.Equal(s.Diagnostics, o.Diagnostics)
}

// Session serializes all recomputation on the goroutine running Run.
type Session struct {
	engine   *pagination.Engine
	scaler   viewport.Scaler
	debounce time.Duration
	logger   *slog.Logger

	content chan pagination.Input
	resize  chan float64
	updates chan Snapshot
}

// NewSession returns a session for a container initially width pixels wide.
func NewSession(engine *pagination.Engine, scaler viewport.Scaler, width float64, debounce time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		engine:   engine,
		scaler:   scaler,
		debounce: debounce,
		logger:   logger,
		content:  make(chan pagination.Input, 1),
		resize:   make(chan float64, 1),
		updates:  make(chan Snapshot, 1),
	}
	s.resize <- width
	return s
}

// ContentChanged queues a re-measure. Only the latest pending input is kept.
func (s *Session) ContentChanged(in pagination.Input) { offer(s.content, in) }

// Resized queues a re-scale. Only the latest pending width is kept.
func (s *Session) Resized(width float64) { offer(s.resize, width) }

// Updates delivers snapshots as they change. Slow readers only see the newest one. The channel is
// closed when Run returns.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

// Run processes events until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.updates)

	var (
		contentTimer, resizeTimer *time.Timer
		contentC, resizeC         <-chan time.Time
		pendingInput              pagination.Input
		pendingWidth              float64
		width                     float64
		haveWidth                 bool
		pages                     = s.engine.Last()
		diags                     []errcode.Diagnostic
		last                      Snapshot
		sent                      bool
	)
	arm := func(t **time.Timer) <-chan time.Time {
		if *t == nil {
			*t = time.NewTimer(s.debounce)
		} else {
			(*t).Reset(s.debounce)
		}
		return (*t).C
	}
	defer func() {
		for _, t := range []*time.Timer{contentTimer, resizeTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}()
	publish := func() {
		if !haveWidth {
			return
		}
		snap := Snapshot{Pages: pages, Frame: s.scaler.Frame(width, pages.PageCount), Diagnostics: diags}
		if sent && snap.equal(last) {
			return
		}
		last, sent = snap, true
		offer(s.updates, snap)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-s.content:
			pendingInput = in
			contentC = arm(&contentTimer)
		case w := <-s.resize:
			pendingWidth = w
			resizeC = arm(&resizeTimer)
		case <-contentC:
			contentC = nil
			res, _, err := s.engine.Measure(ctx, pendingInput)
			if err != nil {
				s.logger.Warn("preview measure failed", slog.Any("error", err))
				if errors.Is(err, pagination.ErrSurfaceUnavailable) {
					diags = s.engine.Diagnostics()
					publish()
				}
				continue
			}
			pages, diags = res, s.engine.Diagnostics()
			publish()
		case <-resizeC:
			resizeC = nil
			width, haveWidth = pendingWidth, true
			publish()
		}
	}
}

// offer puts v into a one-slot channel, replacing whatever is waiting there.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
