package data

import (
	"context"

	"vidguard/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

type metricsRepo struct {
	data *Data
	log  *log.Helper
}

// NewMetricsRepo creates the metrics-storage collaborator.
func NewMetricsRepo(data *Data, logger log.Logger) biz.MetricsRepo {
	return &metricsRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// UpsertDailySnapshot implements biz.MetricsRepo. Idempotent per date:
// re-running a snapshot within the same day replaces the row.
func (r *metricsRepo) UpsertDailySnapshot(ctx context.Context, snap *biz.DailySnapshot) error {
	query := `INSERT INTO filter_metrics_daily (
			snapshot_date, total_requests, blocked_requests, whitelisted_requests,
			avg_response_ms, cache_hit_rate,
			active_whitelist, active_blacklist, active_pattern, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_requests = EXCLUDED.total_requests,
			blocked_requests = EXCLUDED.blocked_requests,
			whitelisted_requests = EXCLUDED.whitelisted_requests,
			avg_response_ms = EXCLUDED.avg_response_ms,
			cache_hit_rate = EXCLUDED.cache_hit_rate,
			active_whitelist = EXCLUDED.active_whitelist,
			active_blacklist = EXCLUDED.active_blacklist,
			active_pattern = EXCLUDED.active_pattern,
			updated_at = now()`

	_, err := r.data.Pool.Exec(ctx, query,
		snap.Date, snap.TotalRequests, snap.BlockedRequests, snap.WhitelistedRequests,
		snap.AvgResponseTimeMs, snap.CacheHitRate,
		snap.ActiveRules.Whitelist, snap.ActiveRules.Blacklist, snap.ActiveRules.Pattern)
	if err != nil {
		r.log.Errorf("upsert daily snapshot %s: %v", snap.Date, err)
	}
	return err
}
