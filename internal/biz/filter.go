package biz

import (
	"context"
	"fmt"
	"time"

	"vidguard/internal/conf"
	"vidguard/internal/pkg/cache"
	"vidguard/internal/pkg/periodic"

	"github.com/go-kratos/kratos/v2/log"
)

// FilterUsecase is the public entry point of the engine: decision
// cache in front of the MatchEngine, with every call folded into the
// metrics. It owns the background schedules (cache sweep, metrics
// snapshot, blacklist index rebuild).
type FilterUsecase struct {
	engine      *MatchEngine
	collector   *MetricsCollector
	metricsRepo MetricsRepo
	ruleRepo    RuleRepo
	index       *BlacklistIndex

	cache *cache.Cache[FilterResult]
	ttl   time.Duration

	tasks []*periodic.Task
	log   *log.Helper
}

// NewFilterUsecase wires the facade and prepares (but does not start)
// its schedules.
func NewFilterUsecase(
	engine *MatchEngine,
	collector *MetricsCollector,
	metricsRepo MetricsRepo,
	ruleRepo RuleRepo,
	index *BlacklistIndex,
	ec *conf.Engine,
	logger log.Logger,
) *FilterUsecase {
	uc := &FilterUsecase{
		engine:      engine,
		collector:   collector,
		metricsRepo: metricsRepo,
		ruleRepo:    ruleRepo,
		index:       index,
		cache:       cache.New[FilterResult](ec.MaxEntries()),
		ttl:         ec.CacheTTL(),
		log:         log.NewHelper(logger),
	}

	uc.tasks = []*periodic.Task{
		periodic.NewTask("cache-sweep", ec.SweepInterval(), uc.sweep, logger),
		periodic.NewTask("metrics-snapshot", ec.SnapshotInterval(), uc.persistSnapshot, logger),
	}
	if index != nil {
		uc.tasks = append(uc.tasks,
			periodic.NewTask("index-rebuild", ec.IndexRebuildInterval(), uc.rebuildIndex, logger))
	}
	return uc
}

// FilterContent decides one item. It always returns a well-formed
// result; internal failures fail open inside the engine.
func (uc *FilterUsecase) FilterContent(ctx context.Context, item *ContentItem) *FilterResult {
	start := time.Now()
	key := item.Fingerprint()

	if res, ok := uc.cache.Get(key); ok {
		res.Cached = true
		res.ResponseTime = time.Since(start)
		uc.collector.Record(&res, true)
		return &res
	}

	res := uc.engine.Evaluate(ctx, item)
	// The canonical decision is cached; Cached and ResponseTime are
	// per-call fields set on the way out.
	uc.cache.Put(key, *res, uc.ttl)

	res.ResponseTime = time.Since(start)
	uc.collector.Record(res, false)
	return res
}

// Metrics returns a copy of the running counters.
func (uc *FilterUsecase) Metrics() FilterMetrics {
	return uc.collector.Snapshot()
}

// CacheStats returns the decision cache's size and hit rate.
func (uc *FilterUsecase) CacheStats() cache.Stats {
	return uc.cache.Stats()
}

// ClearCache drops every cached decision. Metrics counters are
// untouched.
func (uc *FilterUsecase) ClearCache() {
	uc.cache.Clear()
	uc.log.Info("decision cache cleared")
}

// RebuildIndex rebuilds the blacklist index on demand and returns the
// number of indexed keys.
func (uc *FilterUsecase) RebuildIndex(ctx context.Context) (int, error) {
	if uc.index == nil {
		return 0, nil
	}
	return uc.index.Rebuild(ctx)
}

// Start launches the background schedules and primes the blacklist
// index. Idempotent per task.
func (uc *FilterUsecase) Start(ctx context.Context) error {
	if uc.index != nil {
		if _, err := uc.index.Rebuild(ctx); err != nil {
			// The index stays pessimistic until the periodic rebuild
			// succeeds; filtering is unaffected.
			uc.log.Warnf("initial blacklist index build: %v", err)
		}
	}
	for _, t := range uc.tasks {
		t.Start()
	}
	return nil
}

// Stop cancels the background schedules and waits for in-flight runs.
func (uc *FilterUsecase) Stop(ctx context.Context) error {
	for _, t := range uc.tasks {
		t.Stop()
	}
	return nil
}

func (uc *FilterUsecase) sweep(ctx context.Context) error {
	if removed := uc.cache.Sweep(); removed > 0 {
		uc.log.Debugf("cache sweep removed %d entries", removed)
	}
	return nil
}

func (uc *FilterUsecase) rebuildIndex(ctx context.Context) error {
	_, err := uc.index.Rebuild(ctx)
	return err
}

// persistSnapshot upserts today's metrics row, including a freshly
// queried active-rule count.
func (uc *FilterUsecase) persistSnapshot(ctx context.Context) error {
	counts, err := uc.ruleRepo.CountActiveRules(ctx)
	if err != nil {
		return fmt.Errorf("%w: count active rules: %w", ErrMetricsPersist, err)
	}
	snap := uc.collector.DailySnapshot(time.Now().Format("2006-01-02"), counts)
	if err := uc.metricsRepo.UpsertDailySnapshot(ctx, snap); err != nil {
		return fmt.Errorf("%w: %w", ErrMetricsPersist, err)
	}
	return nil
}
