package biz

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestCollector(t *testing.T) *MetricsCollector {
	t.Helper()
	m, err := NewMetricsCollector(prometheus.NewRegistry(), testLogger(t))
	if err != nil {
		t.Fatalf("NewMetricsCollector: %v", err)
	}
	return m
}

func TestMetricsCollector_IncrementalMean(t *testing.T) {
	m := newTestCollector(t)

	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 60 * time.Millisecond}
	for _, d := range durations {
		m.Record(&FilterResult{Allowed: true, ResponseTime: d}, false)
	}

	got := m.Snapshot().AvgResponseTime
	want := 30 * time.Millisecond
	if got != want {
		t.Errorf("AvgResponseTime = %v; want %v", got, want)
	}
}

func TestMetricsCollector_HitRateMean(t *testing.T) {
	m := newTestCollector(t)

	hits := []bool{true, false, false, true}
	for _, h := range hits {
		m.Record(&FilterResult{Allowed: true}, h)
	}

	got := m.Snapshot().CacheHitRate
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CacheHitRate = %f; want 0.5", got)
	}
}

func TestMetricsCollector_Counters(t *testing.T) {
	m := newTestCollector(t)

	m.Record(&FilterResult{Allowed: true}, false)
	m.Record(&FilterResult{Blocked: true}, false)
	m.Record(&FilterResult{Allowed: true, Whitelisted: true}, false)

	snap := m.Snapshot()
	if snap.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d; want 3", snap.TotalRequests)
	}
	if snap.BlockedRequests != 1 {
		t.Errorf("BlockedRequests = %d; want 1", snap.BlockedRequests)
	}
	if snap.WhitelistedRequests != 1 {
		t.Errorf("WhitelistedRequests = %d; want 1", snap.WhitelistedRequests)
	}
}

func TestMetricsCollector_SnapshotIsCopy(t *testing.T) {
	m := newTestCollector(t)
	m.Record(&FilterResult{Allowed: true}, false)

	snap := m.Snapshot()
	snap.TotalRequests = 999

	if m.Snapshot().TotalRequests != 1 {
		t.Error("mutating a snapshot must not affect the collector")
	}
}

func TestMetricsCollector_DailySnapshot(t *testing.T) {
	m := newTestCollector(t)
	m.Record(&FilterResult{Blocked: true, ResponseTime: 10 * time.Millisecond}, false)

	snap := m.DailySnapshot("2026-08-29", RuleCounts{Whitelist: 1, Blacklist: 2, Pattern: 3})

	if snap.Date != "2026-08-29" {
		t.Errorf("Date = %q", snap.Date)
	}
	if snap.BlockedRequests != 1 || snap.TotalRequests != 1 {
		t.Errorf("snapshot = %+v; want one blocked request", snap)
	}
	if snap.ActiveRules.Total() != 6 {
		t.Errorf("ActiveRules.Total() = %d; want 6", snap.ActiveRules.Total())
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid item rule",
			rule: Rule{ID: 1, Kind: RuleKindBlacklist, ItemID: "V1", Type: ContentTypeVideo},
		},
		{
			name: "valid channel rule",
			rule: Rule{ID: 1, Kind: RuleKindWhitelist, IsChannelRule: true, ChannelName: "c"},
		},
		{
			name:    "missing id",
			rule:    Rule{Kind: RuleKindBlacklist, ItemID: "V1", Type: ContentTypeVideo},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			rule:    Rule{ID: 1, Kind: "greylist", ItemID: "V1", Type: ContentTypeVideo},
			wantErr: true,
		},
		{
			name:    "channel rule without channel",
			rule:    Rule{ID: 1, Kind: RuleKindBlacklist, IsChannelRule: true},
			wantErr: true,
		},
		{
			name:    "item rule without item id",
			rule:    Rule{ID: 1, Kind: RuleKindBlacklist, Type: ContentTypeVideo},
			wantErr: true,
		},
		{
			name:    "unknown content type",
			rule:    Rule{ID: 1, Kind: RuleKindBlacklist, ItemID: "V1", Type: "podcast"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRuleLive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"active no expiry", Rule{IsActive: true}, true},
		{"active future expiry", Rule{IsActive: true, ExpiresAt: &future}, true},
		{"active past expiry", Rule{IsActive: true, ExpiresAt: &past}, false},
		{"inactive", Rule{IsActive: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Live(now); got != tt.want {
				t.Errorf("Live() = %v; want %v", got, tt.want)
			}
		})
	}
}
