package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcomes.
const (
	TaskSucceeded = "succeeded"
	TaskRetried   = "retried"
	// TaskDropped is a failure the handler marked with asynq.SkipRetry (bad payload, deleted document).
	TaskDropped = "dropped"
)

var (
	taskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phcompose",
			Subsystem: "asynq",
			Name:      "tasks_total",
			Help:      "按结果统计的任务处理次数。",
		},
		[]string{"task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phcompose",
			Subsystem: "asynq",
			Name:      "task_duration_seconds",
			Help:      "任务处理耗时分布（秒）。导出任务包含渲染与上传。",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phcompose",
			Subsystem: "asynq",
			Name:      "tasks_in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"task_type"},
	)
)

// TaskOutcome classifies the error a handler returned.
func TaskOutcome(err error) string {
	switch {
	case err == nil:
		return TaskSucceeded
	case errors.Is(err, asynq.SkipRetry):
		return TaskDropped
	default:
		return TaskRetried
	}
}

// AsynqMetricsMiddleware 记录 Asynq 任务处理指标。
func AsynqMetricsMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			taskInProgress.WithLabelValues(taskType).Inc()
			defer taskInProgress.WithLabelValues(taskType).Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
			taskTotal.WithLabelValues(taskType, TaskOutcome(err)).Inc()
			return err
		})
	}
}
