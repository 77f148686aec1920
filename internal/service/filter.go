package service

import (
	"context"

	"vidguard/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewFilterService)

// FilterService exposes the engine's public operations to the
// transport layer.
type FilterService struct {
	uc *biz.FilterUsecase
}

// NewFilterService creates a new FilterService.
func NewFilterService(uc *biz.FilterUsecase) *FilterService {
	return &FilterService{uc: uc}
}

// FilterRequest is one item to be decided.
type FilterRequest struct {
	ID          string   `json:"id"`
	ItemID      string   `json:"item_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	ChannelName string   `json:"channel_name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// FilterResponse is the wire form of a decision.
type FilterResponse struct {
	Allowed        bool    `json:"allowed"`
	Blocked        bool    `json:"blocked"`
	Whitelisted    bool    `json:"whitelisted"`
	Reason         string  `json:"reason"`
	MatchedBy      string  `json:"matched_by,omitempty"`
	MatchedRule    int64   `json:"matched_rule,omitempty"`
	Confidence     int     `json:"confidence"`
	Category       string  `json:"category,omitempty"`
	Severity       int32   `json:"severity,omitempty"`
	Cached         bool    `json:"cached"`
	ResponseTimeMs float64 `json:"response_time_ms"`
}

// MetricsResponse is the wire form of the running counters.
type MetricsResponse struct {
	TotalRequests       int64   `json:"total_requests"`
	BlockedRequests     int64   `json:"blocked_requests"`
	WhitelistedRequests int64   `json:"whitelisted_requests"`
	AvgResponseTimeMs   float64 `json:"avg_response_time_ms"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
}

// CacheStatsResponse is the wire form of the cache stats.
type CacheStatsResponse struct {
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// RebuildIndexResponse reports an on-demand index rebuild.
type RebuildIndexResponse struct {
	IndexedKeys int `json:"indexed_keys"`
}

// FilterContent decides one item.
func (s *FilterService) FilterContent(ctx context.Context, in *FilterRequest) *FilterResponse {
	res := s.uc.FilterContent(ctx, &biz.ContentItem{
		ID:          in.ID,
		ItemID:      in.ItemID,
		Type:        biz.ContentType(in.Type),
		Title:       in.Title,
		ChannelName: in.ChannelName,
		Description: in.Description,
		Tags:        in.Tags,
	})
	return &FilterResponse{
		Allowed:        res.Allowed,
		Blocked:        res.Blocked,
		Whitelisted:    res.Whitelisted,
		Reason:         res.Reason,
		MatchedBy:      string(res.MatchedBy),
		MatchedRule:    res.MatchedRule,
		Confidence:     res.Confidence,
		Category:       res.Category,
		Severity:       res.Severity,
		Cached:         res.Cached,
		ResponseTimeMs: float64(res.ResponseTime.Microseconds()) / 1000,
	}
}

// Metrics returns a copy of the running counters.
func (s *FilterService) Metrics() *MetricsResponse {
	m := s.uc.Metrics()
	return &MetricsResponse{
		TotalRequests:       m.TotalRequests,
		BlockedRequests:     m.BlockedRequests,
		WhitelistedRequests: m.WhitelistedRequests,
		AvgResponseTimeMs:   float64(m.AvgResponseTime.Microseconds()) / 1000,
		CacheHitRate:        m.CacheHitRate,
	}
}

// CacheStats returns the decision cache stats.
func (s *FilterService) CacheStats() *CacheStatsResponse {
	stats := s.uc.CacheStats()
	return &CacheStatsResponse{Size: stats.Size, HitRate: stats.HitRate}
}

// ClearCache drops all cached decisions.
func (s *FilterService) ClearCache() {
	s.uc.ClearCache()
}

// RebuildIndex rebuilds the blacklist index on demand.
func (s *FilterService) RebuildIndex(ctx context.Context) (*RebuildIndexResponse, error) {
	n, err := s.uc.RebuildIndex(ctx)
	if err != nil {
		return nil, err
	}
	return &RebuildIndexResponse{IndexedKeys: n}, nil
}
