// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器；实现 stream.Observer 与 api.Observer
type Collector struct {
	// 流指标
	streamsOpened  *prometheus.CounterVec
	streamsActive  *prometheus.GaugeVec
	streamEvents   *prometheus.CounterVec
	streamsClosed  *prometheus.CounterVec
	streamDuration *prometheus.HistogramVec

	// 非流式接口指标
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	// 运行指标
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，指标注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 流指标
	c.streamsOpened = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_opened_total",
			Help:      "Total number of push channels opened",
		},
		[]string{"transport"},
	)

	c.streamsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of push channels currently open",
		},
		[]string{"transport"},
	)

	c.streamEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Total number of events dispatched",
		},
		[]string{"transport", "type"},
	)

	c.streamsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_closed_total",
			Help:      "Total number of push channels closed, by outcome",
		},
		[]string{"transport", "outcome"},
	)

	c.streamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Push channel lifetime in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"transport", "outcome"},
	)

	// 非流式接口指标
	c.apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of JSON endpoint requests",
		},
		[]string{"endpoint", "status"},
	)

	c.apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "JSON endpoint request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	// 运行指标
	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pattern runs, by result",
		},
		[]string{"pattern", "result"},
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pattern run duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"pattern"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 📡 流指标记录
// =============================================================================

// StreamOpened 实现 stream.Observer
func (c *Collector) StreamOpened(transport string) {
	c.streamsOpened.WithLabelValues(transport).Inc()
	c.streamsActive.WithLabelValues(transport).Inc()
}

// EventReceived 实现 stream.Observer
func (c *Collector) EventReceived(transport, eventType string) {
	c.streamEvents.WithLabelValues(transport, eventType).Inc()
}

// StreamClosed 实现 stream.Observer
func (c *Collector) StreamClosed(transport, outcome string, duration time.Duration) {
	c.streamsActive.WithLabelValues(transport).Dec()
	c.streamsClosed.WithLabelValues(transport, outcome).Inc()
	c.streamDuration.WithLabelValues(transport, outcome).Observe(duration.Seconds())
}

// =============================================================================
// 🌐 接口指标记录
// =============================================================================

// RequestCompleted 实现 api.Observer
func (c *Collector) RequestCompleted(endpoint string, status int, duration time.Duration) {
	c.apiRequestsTotal.WithLabelValues(endpoint, statusCode(status)).Inc()
	c.apiRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// =============================================================================
// 🎭 运行指标记录
// =============================================================================

// RecordRun 记录一次模式运行，result 为 complete / error / cancelled 之一
func (c *Collector) RecordRun(pattern, result string, duration time.Duration) {
	c.runsTotal.WithLabelValues(pattern, result).Inc()
	c.runDuration.WithLabelValues(pattern).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串；0 表示未得到响应
func statusCode(code int) string {
	switch {
	case code == 0:
		return "none"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
