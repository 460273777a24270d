package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgdir_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orgdir_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	FilterEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgdir_filter_evaluations_total",
		Help: "Total organization filter evaluations by geo mode",
	}, []string{"geo"})
	FilterErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgdir_filter_errors_total",
		Help: "Total rejected filter evaluations by kind",
	}, []string{"kind"})
	FilterResultSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orgdir_filter_results",
		Help:    "Number of organizations returned per evaluation",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orgdir_cache_hits_total",
		Help: "Total filter result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orgdir_cache_misses_total",
		Help: "Total filter result cache misses",
	})
	SnapshotReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgdir_snapshot_reloads_total",
		Help: "Directory snapshot reloads by status",
	}, []string{"status"})
	HierarchySize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orgdir_hierarchy_size",
		Help: "Number of activities in the current hierarchy snapshot",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orgdir_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(FilterEvaluationsTotal)
	prometheus.MustRegister(FilterErrorsTotal)
	prometheus.MustRegister(FilterResultSize)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(SnapshotReloadsTotal)
	prometheus.MustRegister(HierarchySize)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
