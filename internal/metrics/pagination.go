package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	measureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phcompose",
			Subsystem: "pagination",
			Name:      "measure_duration_seconds",
			Help:      "测量一次文档高度的耗时分布（秒）。",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	pageCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "phcompose",
			Subsystem: "pagination",
			Name:      "page_count",
			Help:      "已发布分页结果的页数分布。",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		},
	)
)

// ObserveMeasure records one measuring pass. outcome is one of published, unchanged, superseded,
// cancelled, failed or unavailable.
func ObserveMeasure(outcome string, elapsed time.Duration) {
	measureDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObservePages records the page count of a published result.
func ObservePages(n int) {
	pageCount.Observe(float64(n))
}
