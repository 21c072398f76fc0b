package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 密钥生命周期指标
	KeysCreated   prometheus.Counter
	KeysDuplicate prometheus.Counter // 被掩盖的重复创建
	KeysDeleted   prometheus.Counter
	KeysRevoked   prometheus.Counter
	KeysActive    prometheus.Gauge

	// 验证指标（按结论分类）
	VerificationsTotal *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keygate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		KeysCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_keys_created_total",
				Help: "Total number of license keys created",
			},
		),

		KeysDuplicate: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_keys_duplicate_total",
				Help: "Total number of create calls skipped because the value already existed",
			},
		),

		KeysDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_keys_deleted_total",
				Help: "Total number of license keys deleted",
			},
		),

		KeysRevoked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_keys_revoked_total",
				Help: "Total number of license keys revoked",
			},
		),

		KeysActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "keygate_keys_active",
				Help: "Number of stored license keys",
			},
		),

		VerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_verifications_total",
				Help: "Total number of key verifications by verdict",
			},
			[]string{"verdict"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordKeyCreated 记录密钥创建
func (m *Metrics) RecordKeyCreated() {
	m.KeysCreated.Inc()
}

// RecordKeyDuplicate 记录被掩盖的重复创建
func (m *Metrics) RecordKeyDuplicate() {
	m.KeysDuplicate.Inc()
}

// RecordKeyDeleted 记录密钥删除
func (m *Metrics) RecordKeyDeleted() {
	m.KeysDeleted.Inc()
}

// RecordKeyRevoked 记录密钥吊销
func (m *Metrics) RecordKeyRevoked() {
	m.KeysRevoked.Inc()
}

// RecordVerification 按结论记录一次验证
func (m *Metrics) RecordVerification(verdict string) {
	m.VerificationsTotal.WithLabelValues(verdict).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录恐慌
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// UpdateKeysActive 更新当前存储的密钥数量
func (m *Metrics) UpdateKeysActive(count int) {
	m.KeysActive.Set(float64(count))
}

// HTTPHandler 返回 Prometheus 指标处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
