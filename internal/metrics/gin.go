package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phcompose",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒），不含 websocket 长连接。",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phcompose",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数。",
		},
		[]string{"method", "route", "status"},
	)

	streamsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phcompose",
			Subsystem: "http",
			Name:      "open_streams",
			Help:      "当前打开的 websocket 连接（预览与通知）。",
		},
		[]string{"route"},
	)
)

// unmatchedRoute labels requests no route matched, so scanners cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// skipRoutes are probes and scrapes that would drown real traffic.
var skipRoutes = map[string]bool{"/health": true, "/metrics": true}

// GinMiddleware records per-route request metrics. Websocket upgrades are counted as open streams
// instead of latency samples, since a preview socket lives as long as the editor tab.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if skipRoutes[route] {
			c.Next()
			return
		}
		if isUpgrade(c) {
			streamsOpen.WithLabelValues(route).Inc()
			defer streamsOpen.WithLabelValues(route).Dec()
		}

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		if !isUpgrade(c) {
			requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		}
	}
}

func isUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
