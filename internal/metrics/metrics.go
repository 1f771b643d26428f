package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rewards"

// 核销结果标签
const (
	OutcomeSuccess = "success"
)

// Metrics 业务与 HTTP 指标集合
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	claimVerifyTotal *prometheus.CounterVec
	claimCommitTotal *prometheus.CounterVec
	rewardsGenerated *prometheus.CounterVec
	rewardsSwept     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
}

// New 创建指标集合，registry 为空时新建独立 registry 并注册进程指标
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		claimVerifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_verify_total",
			Help:      "Claim verifications by outcome",
		}, []string{"outcome"}),
		claimCommitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_commit_total",
			Help:      "Claim commits by outcome",
		}, []string{"outcome"}),
		rewardsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_generated_total",
			Help:      "Rewards generated for marketing events",
		}, []string{"kind"}),
		rewardsSwept: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_swept_total",
			Help:      "Rewards moved by background sweeps",
		}, []string{"status"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by area and result",
		}, []string{"area", "result"}),
	}
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveClaimVerify 记录核销校验结果
func (m *Metrics) ObserveClaimVerify(outcome string) {
	if m == nil {
		return
	}
	m.claimVerifyTotal.WithLabelValues(outcome).Inc()
}

// ObserveClaimCommit 记录核销提交结果
func (m *Metrics) ObserveClaimCommit(outcome string) {
	if m == nil {
		return
	}
	m.claimCommitTotal.WithLabelValues(outcome).Inc()
}

// AddRewardsGenerated 累加生成的奖励数
func (m *Metrics) AddRewardsGenerated(regular, dummy int) {
	if m == nil {
		return
	}
	m.rewardsGenerated.WithLabelValues("regular").Add(float64(regular))
	m.rewardsGenerated.WithLabelValues("dummy").Add(float64(dummy))
}

// AddRewardsSwept 累加后台批量迁移的奖励数
func (m *Metrics) AddRewardsSwept(status string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.rewardsSwept.WithLabelValues(status).Add(float64(count))
}

// ObserveCache 记录缓存命中情况
func (m *Metrics) ObserveCache(area string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(area, result).Inc()
}
