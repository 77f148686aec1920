package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
)

// FilterMetrics is a point-in-time copy of the running counters.
type FilterMetrics struct {
	TotalRequests       int64
	BlockedRequests     int64
	WhitelistedRequests int64
	AvgResponseTime     time.Duration
	CacheHitRate        float64
}

// DailySnapshot is one persisted metrics row, immutable once the day
// is over; within a day it is upserted in place.
type DailySnapshot struct {
	Date                string
	TotalRequests       int64
	BlockedRequests     int64
	WhitelistedRequests int64
	AvgResponseTimeMs   float64
	CacheHitRate        float64
	ActiveRules         RuleCounts
}

// MetricsRepo is the metrics-storage collaborator.
type MetricsRepo interface {
	UpsertDailySnapshot(ctx context.Context, snap *DailySnapshot) error
}

// NewPrometheusRegisterer exposes the process-default registry to the
// injector; tests pass their own.
func NewPrometheusRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// MetricsCollector accumulates counters from every facade invocation.
// Averages use the incremental-mean formula so no per-request history
// is kept. The same observations feed prometheus.
type MetricsCollector struct {
	mu          sync.Mutex
	total       int64
	blocked     int64
	whitelisted int64
	avgMs       float64
	hitRate     float64

	promRequests    *prometheus.CounterVec
	promCacheHits   prometheus.Counter
	promRespSeconds prometheus.Histogram

	log *log.Helper
}

// NewMetricsCollector creates a collector with its prometheus series
// registered on reg.
func NewMetricsCollector(reg prometheus.Registerer, logger log.Logger) (*MetricsCollector, error) {
	m := &MetricsCollector{
		promRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidguard",
			Name:      "filter_requests_total",
			Help:      "Filter decisions by outcome.",
		}, []string{"outcome"}),
		promCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidguard",
			Name:      "filter_cache_hits_total",
			Help:      "Decisions served from the cache.",
		}),
		promRespSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vidguard",
			Name:      "filter_response_seconds",
			Help:      "Wall time of filterContent calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		log: log.NewHelper(logger),
	}

	for _, c := range []prometheus.Collector{m.promRequests, m.promCacheHits, m.promRespSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Record folds one decision into the running counters.
func (m *MetricsCollector) Record(res *FilterResult, cacheHit bool) {
	hit := 0.0
	if cacheHit {
		hit = 1.0
		m.promCacheHits.Inc()
	}
	m.promRequests.WithLabelValues(outcomeLabel(res)).Inc()
	m.promRespSeconds.Observe(res.ResponseTime.Seconds())

	ms := float64(res.ResponseTime) / float64(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	if res.Blocked {
		m.blocked++
	}
	if res.Whitelisted {
		m.whitelisted++
	}
	n := float64(m.total)
	m.avgMs = (m.avgMs*(n-1) + ms) / n
	m.hitRate = (m.hitRate*(n-1) + hit) / n
}

// Snapshot returns a copy of the running counters.
func (m *MetricsCollector) Snapshot() FilterMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FilterMetrics{
		TotalRequests:       m.total,
		BlockedRequests:     m.blocked,
		WhitelistedRequests: m.whitelisted,
		AvgResponseTime:     time.Duration(m.avgMs * float64(time.Millisecond)),
		CacheHitRate:        m.hitRate,
	}
}

// DailySnapshot assembles the persisted row for the given date.
func (m *MetricsCollector) DailySnapshot(date string, active RuleCounts) *DailySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &DailySnapshot{
		Date:                date,
		TotalRequests:       m.total,
		BlockedRequests:     m.blocked,
		WhitelistedRequests: m.whitelisted,
		AvgResponseTimeMs:   m.avgMs,
		CacheHitRate:        m.hitRate,
		ActiveRules:         active,
	}
}

func outcomeLabel(res *FilterResult) string {
	switch {
	case res.Whitelisted:
		return "whitelisted"
	case res.Blocked:
		return "blocked"
	default:
		return "allowed"
	}
}
