// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 取り込み失敗の理由ラベル
const (
	ReasonValidation            = "validation"
	ReasonUserNotFound          = "user_not_found"
	ReasonResolutionUnavailable = "resolution_unavailable"
	ReasonStorage               = "storage"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordIngestSuccess()
	RecordIngestFailure(reason string)
	RecordResolveLatency(duration time.Duration)
	RecordPlacesLinked(count int)
	RecordPlaceCreated()
	RecordPlaceConflict()
	RecordHTTPStatus(statusCode int)
	SetBreakerState(name string, state float64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ingestSuccess  prometheus.Counter
	ingestFail     *prometheus.CounterVec
	resolveLatency prometheus.Histogram
	placesLinked   prometheus.Counter
	placesCreated  prometheus.Counter
	placeConflicts prometheus.Counter
	httpStatus     *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moody_ingest_success_total",
			Help: "ムードイベント取り込み成功の合計数",
		}),
		ingestFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moody_ingest_fail_total",
			Help: "ムードイベント取り込み失敗の合計数（理由別）",
		}, []string{"reason"}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moody_place_resolve_latency_seconds",
			Help:    "周辺スポット検索のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		placesLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moody_places_linked_total",
			Help: "イベントに関連付けられたスポットの合計数",
		}),
		placesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moody_places_created_total",
			Help: "新規作成されたスポットの合計数",
		}),
		placeConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moody_place_conflicts_total",
			Help: "スポット作成時の一意制約競合の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moody_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "moody_circuit_breaker_state",
			Help: "サーキットブレーカーの状態 (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
	}

	reg.MustRegister(
		c.ingestSuccess,
		c.ingestFail,
		c.resolveLatency,
		c.placesLinked,
		c.placesCreated,
		c.placeConflicts,
		c.httpStatus,
		c.breakerState,
	)

	return c
}

// RecordIngestSuccess は取り込み成功を記録する。
func (c *Collector) RecordIngestSuccess() {
	c.ingestSuccess.Inc()
}

// RecordIngestFailure は取り込み失敗を理由付きで記録する。
func (c *Collector) RecordIngestFailure(reason string) {
	c.ingestFail.WithLabelValues(reason).Inc()
}

// RecordResolveLatency は周辺スポット検索のレイテンシを記録する。
func (c *Collector) RecordResolveLatency(duration time.Duration) {
	c.resolveLatency.Observe(duration.Seconds())
}

// RecordPlacesLinked はイベントに関連付けたスポット数を記録する。
func (c *Collector) RecordPlacesLinked(count int) {
	c.placesLinked.Add(float64(count))
}

// RecordPlaceCreated はスポットの新規作成を記録する。
func (c *Collector) RecordPlaceCreated() {
	c.placesCreated.Inc()
}

// RecordPlaceConflict は一意制約競合を記録する。
func (c *Collector) RecordPlaceConflict() {
	c.placeConflicts.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetBreakerState はサーキットブレーカーの状態を設定する。
func (c *Collector) SetBreakerState(name string, state float64) {
	c.breakerState.WithLabelValues(name).Set(state)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。
// メトリクスが不要なテストや構成で使用する。
type Nop struct{}

func (Nop) RecordIngestSuccess() {}
func (Nop) RecordIngestFailure(string) {}
func (Nop) RecordResolveLatency(time.Duration) {}
func (Nop) RecordPlacesLinked(int) {}
func (Nop) RecordPlaceCreated() {}
func (Nop) RecordPlaceConflict() {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) SetBreakerState(string, float64) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
