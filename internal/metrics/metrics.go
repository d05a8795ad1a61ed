// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// HTTPミドルウェア、認証サービス、治験サービス、セッション掃除から利用する。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	loginAttempts  *prometheus.CounterVec
	trialMutations *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trialman_http_requests_total",
			Help: "ルート・メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trialman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trialman_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		trialMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trialman_trial_mutations_total",
			Help: "操作別の治験書き込み数",
		}, []string{"op"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trialman_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.loginAttempts,
		c.trialMutations,
		c.sessionsPurged,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはパスパラメータを含まないルートパターンを渡すこと。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLoginAttempt はログイン試行の結果を記録する。
func (c *Collector) RecordLoginAttempt(result string) {
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordTrialMutation は治験の作成・更新・削除を記録する。
func (c *Collector) RecordTrialMutation(op string) {
	c.trialMutations.WithLabelValues(op).Inc()
}

// RecordSessionsPurged は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
