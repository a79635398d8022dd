package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 引擎计算耗时（秒）
	EngineOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evm_engine_op_duration_seconds",
			Help:    "Scheduling and metrics engine operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
		[]string{"op", "mode"}, // op: reschedule, auto_assign, evm; mode: preview, execute
	)

	// 执行类操作写入的任务数
	TasksUpdatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_tasks_updated_total",
			Help: "Total number of tasks updated by execute operations",
		},
		[]string{"op"},
	)

	// 计算警告计数
	ComputationWarningCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_computation_warnings_total",
			Help: "Total number of computation warnings returned with a plan",
		},
		[]string{"code"},
	)

	// EVM 快照计数
	SnapshotCreatedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evm_snapshots_created_total",
			Help: "Total number of EVM snapshots recorded",
		},
	)

	// 分析缓存命中
	AnalysisCacheCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evm_analysis_cache_total",
			Help: "EVM analysis cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordEngineOp 记录引擎计算耗时
func RecordEngineOp(op, mode string, duration time.Duration) {
	EngineOpDuration.WithLabelValues(op, mode).Observe(duration.Seconds())
}

// AddTasksUpdated 累加执行类操作写入的任务数
func AddTasksUpdated(op string, n int) {
	TasksUpdatedCount.WithLabelValues(op).Add(float64(n))
}

// IncrementWarning 增加计算警告计数
func IncrementWarning(code string) {
	ComputationWarningCount.WithLabelValues(code).Inc()
}

// IncrementSnapshotCreated 增加快照计数
func IncrementSnapshotCreated() {
	SnapshotCreatedCount.Inc()
}

// RecordAnalysisCache 记录缓存命中情况
func RecordAnalysisCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	AnalysisCacheCount.WithLabelValues(result).Inc()
}
