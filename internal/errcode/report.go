package errcode

import (
	"context"
	"log/slog"
	"sync"
)

// Diagnostic describes a non-fatal condition the core handled by falling back to a default.
type Diagnostic struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

// Reporter receives diagnostics for optional surfacing. Implementations must not block.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(d Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Reporter = ReporterFunc(func(Diagnostic) {})

// OrDiscard returns r, or Discard when r is nil.
func OrDiscard(r Reporter) Reporter {
	if r == nil {
		return Discard
	}
	return r
}

// SlogReporter logs recoverable diagnostics at warn level and everything else at error level.
func SlogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return ReporterFunc(func(d Diagnostic) {
		level := slog.LevelWarn
		if !Recoverable(d.Code) {
			level = slog.LevelError
		}
		logger.LogAttrs(context.Background(), level, d.Message,
			slog.Int("code", d.Code),
			slog.String("code_text", Text(d.Code)),
			slog.String("key", d.Key),
		)
	})
}

// Collector keeps diagnostics in memory, deduplicated by code and key.
type Collector struct {
	mu    sync.Mutex
	seen  map[Diagnostic]struct{}
	items []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[Diagnostic]struct{})
	}
	if _, ok := c.seen[d]; ok {
		return
	}
	c.seen[d] = struct{}{}
	c.items = append(c.items, d)
}

// Diagnostics returns a copy of the collected diagnostics in report order.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Tee forwards every diagnostic to all non-nil reporters.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(d Diagnostic) {
		for _, r := range reporters {
			if r != nil {
				r.Report(d)
			}
		}
	})
}
