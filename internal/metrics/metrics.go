// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordCacheHit(resource string)
	RecordCacheMiss(resource string)
	RecordUpstreamLatency(duration time.Duration)
	RecordUpstreamFailure()
	RecordHTTPStatus(statusCode int)
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cacheHit        *prometheus.CounterVec
	cacheMiss       *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
	upstreamFail    prometheus.Counter
	httpStatus      *prometheus.CounterVec
	loginSuccess    prometheus.Counter
	loginFail       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steamstats_cache_hit_total",
			Help: "リソース別のキャッシュヒット合計数",
		}, []string{"resource"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steamstats_cache_miss_total",
			Help: "リソース別のキャッシュミス合計数",
		}, []string{"resource"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "steamstats_upstream_latency_seconds",
			Help:    "Steam API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steamstats_upstream_fail_total",
			Help: "Steam API呼び出し失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steamstats_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steamstats_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steamstats_login_fail_total",
			Help: "失敗理由別のログイン失敗合計数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.cacheHit,
		c.cacheMiss,
		c.upstreamLatency,
		c.upstreamFail,
		c.httpStatus,
		c.loginSuccess,
		c.loginFail,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(resource string) {
	c.cacheHit.WithLabelValues(resource).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(resource string) {
	c.cacheMiss.WithLabelValues(resource).Inc()
}

// RecordUpstreamLatency はSteam API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordUpstreamFailure はSteam API呼び出し失敗を記録する。
func (c *Collector) RecordUpstreamFailure() {
	c.upstreamFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を理由ラベル付きで記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
