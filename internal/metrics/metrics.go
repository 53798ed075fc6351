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
// 同期処理やハンドラー層から利用する。
type MetricsCollector interface {
	RecordSyncSuccess()
	RecordSyncFailure(reason string)
	RecordEventParseFailure()
	RecordHTTPStatus(statusCode int)
	RecordSyncLatency(duration time.Duration)
	RecordMeetingsUpserted(count int)
	RecordMeetingsDeleted(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess     prometheus.Counter
	syncFail        *prometheus.CounterVec
	eventParseFail  prometheus.Counter
	httpStatus      *prometheus.CounterVec
	syncLatency     prometheus.Histogram
	meetingsUpsert  prometheus.Counter
	meetingsDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetingtracker_sync_success_total",
			Help: "カレンダー同期成功の合計数",
		}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingtracker_sync_fail_total",
			Help: "カレンダー同期失敗の合計数",
		}, []string{"reason"}),
		eventParseFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetingtracker_event_parse_fail_total",
			Help: "イベントのタイムスタンプパース失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetingtracker_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		syncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetingtracker_sync_latency_seconds",
			Help:    "カレンダー同期のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		meetingsUpsert: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetingtracker_meetings_upserted_total",
			Help: "同期で挿入・更新されたミーティングの合計数",
		}),
		meetingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetingtracker_meetings_deleted_total",
			Help: "同期で削除されたミーティングの合計数",
		}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.eventParseFail,
		c.httpStatus,
		c.syncLatency,
		c.meetingsUpsert,
		c.meetingsDeleted,
	)

	return c
}

// RecordSyncSuccess は同期成功を記録する。
func (c *Collector) RecordSyncSuccess() {
	c.syncSuccess.Inc()
}

// RecordSyncFailure は同期失敗を記録する。
func (c *Collector) RecordSyncFailure(reason string) {
	c.syncFail.WithLabelValues(reason).Inc()
}

// RecordEventParseFailure はイベントのパース失敗を記録する。
func (c *Collector) RecordEventParseFailure() {
	c.eventParseFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSyncLatency は同期のレイテンシを記録する。
func (c *Collector) RecordSyncLatency(duration time.Duration) {
	c.syncLatency.Observe(duration.Seconds())
}

// RecordMeetingsUpserted は挿入・更新されたミーティング数を記録する。
func (c *Collector) RecordMeetingsUpserted(count int) {
	c.meetingsUpsert.Add(float64(count))
}

// RecordMeetingsDeleted は削除されたミーティング数を記録する。
func (c *Collector) RecordMeetingsDeleted(count int) {
	c.meetingsDeleted.Add(float64(count))
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

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
