package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics はアプリケーションの Prometheus メトリクスを保持します。
// staffing.Recorder を実装します。
type Metrics struct {
	registry      *prometheus.Registry
	httpDuration  *prometheus.HistogramVec
	operations    *prometheus.CounterVec
	compensations *prometheus.CounterVec
}

// NewMetrics は専用レジストリにメトリクスを登録して返します。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staffing_http_request_duration_seconds",
			Help:    "Histogram of HTTP response times in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"route", "method", "status"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffing_operations_total",
			Help: "Counter of composite employee operations by outcome",
		}, []string{"operation", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffing_compensations_total",
			Help: "Counter of compensating employee deletions by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.operations,
		m.compensations,
	)
	return m
}

// ObserveHTTP はリクエスト 1 件の処理時間を記録します。
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// OperationCompleted は複合操作の結果を記録します。
func (m *Metrics) OperationCompleted(operation, outcome string) {
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// CompensationCompleted は補償処理の結果を記録します。
func (m *Metrics) CompensationCompleted(result string) {
	m.compensations.WithLabelValues(result).Inc()
}

// Handler は /metrics 用のハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry はテストや追加登録用にレジストリを返します。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
