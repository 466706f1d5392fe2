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
// ミドルウェアやブロードキャスターから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordBroadcastSent(command string)
	RecordBroadcastDropped()
	SetLiveConnections(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	broadcastSent    *prometheus.CounterVec
	broadcastDropped prometheus.Counter
	liveConnections  prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirp_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chirp_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		broadcastSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chirp_broadcast_sent_total",
			Help: "ライブ接続に配信されたブロードキャストイベント数",
		}, []string{"command"}),
		broadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chirp_broadcast_dropped_total",
			Help: "バッファ満杯により破棄されたブロードキャストイベント数",
		}),
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chirp_live_connections",
			Help: "現在接続中の認証済みライブ接続数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.broadcastSent,
		c.broadcastDropped,
		c.liveConnections,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordBroadcastSent は配信されたブロードキャストイベントを記録する。
func (c *Collector) RecordBroadcastSent(command string) {
	c.broadcastSent.WithLabelValues(command).Inc()
}

// RecordBroadcastDropped は破棄されたブロードキャストイベントを記録する。
func (c *Collector) RecordBroadcastDropped() {
	c.broadcastDropped.Inc()
}

// SetLiveConnections は現在のライブ接続数を記録する。
func (c *Collector) SetLiveConnections(count int) {
	c.liveConnections.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
