// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン試行結果のラベル値
const (
	LoginSuccess      = "success"
	LoginUserNotFound = "user_not_found"
	LoginBadPassword  = "bad_password"
	LoginError        = "error"
)

// アクセス拒否理由のラベル値
const (
	DeniedUnauthenticated = "unauthenticated"
	DeniedRole            = "role"
	DeniedOwnership       = "ownership"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordLoginAttempt(result string)
	RecordRegistration()
	RecordSessionCreated()
	RecordSessionDestroyed()
	RecordAccessDenied(reason string)
	RecordPostMutation(action string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginAttempts   *prometheus.CounterVec
	registrations   prometheus.Counter
	sessionsCreated prometheus.Counter
	sessionsDestroy prometheus.Counter
	accessDenied    *prometheus.CounterVec
	postMutations   *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	sessionsPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameforum_login_attempts_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gameforum_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gameforum_sessions_created_total",
			Help: "作成されたセッションの合計数",
		}),
		sessionsDestroy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gameforum_sessions_destroyed_total",
			Help: "ログアウトで破棄されたセッションの合計数",
		}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameforum_access_denied_total",
			Help: "理由別のアクセス拒否数",
		}, []string{"reason"}),
		postMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameforum_post_mutations_total",
			Help: "操作別の投稿変更数",
		}, []string{"action"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gameforum_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gameforum_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gameforum_sessions_purged_total",
			Help: "クリーンアップジョブで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.registrations,
		c.sessionsCreated,
		c.sessionsDestroy,
		c.accessDenied,
		c.postMutations,
		c.httpStatus,
		c.requestLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordLoginAttempt はログイン試行を結果別に記録する。
func (c *Collector) RecordLoginAttempt(result string) {
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordSessionCreated はセッション作成を記録する。
func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

// RecordSessionDestroyed はセッション破棄を記録する。
func (c *Collector) RecordSessionDestroyed() {
	c.sessionsDestroy.Inc()
}

// RecordAccessDenied はアクセス拒否を理由別に記録する。
func (c *Collector) RecordAccessDenied(reason string) {
	c.accessDenied.WithLabelValues(reason).Inc()
}

// RecordPostMutation は投稿の作成・更新・削除を記録する。
func (c *Collector) RecordPostMutation(action string) {
	c.postMutations.WithLabelValues(action).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。メトリクス不要な経路とテストで使用する。
type Nop struct{}

func (Nop) RecordLoginAttempt(string)          {}
func (Nop) RecordRegistration()                {}
func (Nop) RecordSessionCreated()              {}
func (Nop) RecordSessionDestroyed()            {}
func (Nop) RecordAccessDenied(string)          {}
func (Nop) RecordPostMutation(string)          {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordSessionsPurged(int64)         {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
