package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vidguard/internal/biz"
	"vidguard/internal/conf"
	"vidguard/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus"
)

type stubRuleRepo struct {
	patterns []*biz.PatternRule
}

func (s *stubRuleRepo) FindActiveWhitelist(context.Context, string, biz.ContentType) (*biz.Rule, error) {
	return nil, nil
}

func (s *stubRuleRepo) FindActiveWhitelistChannel(context.Context, string) (*biz.Rule, error) {
	return nil, nil
}

func (s *stubRuleRepo) FindActiveBlacklist(context.Context, string, biz.ContentType) (*biz.Rule, error) {
	return nil, nil
}

func (s *stubRuleRepo) FindActiveBlacklistChannel(context.Context, string) (*biz.Rule, error) {
	return nil, nil
}

func (s *stubRuleRepo) ListActivePatternRules(context.Context, biz.ContentType) ([]*biz.PatternRule, error) {
	return s.patterns, nil
}

func (s *stubRuleRepo) IncrementMatchCount(context.Context, int64, biz.MatchSource) error {
	return nil
}

func (s *stubRuleRepo) CountActiveRules(context.Context) (biz.RuleCounts, error) {
	return biz.RuleCounts{Pattern: int64(len(s.patterns))}, nil
}

func (s *stubRuleRepo) ListActiveBlacklistKeys(context.Context) ([]string, error) {
	return nil, nil
}

type stubMetricsRepo struct{}

func (stubMetricsRepo) UpsertDailySnapshot(context.Context, *biz.DailySnapshot) error { return nil }

func newTestHandler(t *testing.T, repo biz.RuleRepo) *filterHandler {
	t.Helper()
	logger := log.NewStdLogger(testWriter{t})
	collector, err := biz.NewMetricsCollector(prometheus.NewRegistry(), logger)
	if err != nil {
		t.Fatalf("NewMetricsCollector: %v", err)
	}
	engine := biz.NewMatchEngine(repo, nil, logger)
	uc := biz.NewFilterUsecase(engine, collector, stubMetricsRepo{}, repo, nil, &conf.Engine{}, logger)
	return &filterHandler{svc: service.NewFilterService(uc), log: log.NewHelper(logger)}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func TestFilterHandlerAllows(t *testing.T) {
	h := newTestHandler(t, &stubRuleRepo{})

	body := `{"item_id":"vid-1","type":"video","title":"cooking basics"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/filter", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.filter(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	var res service.FilterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Allowed || res.Blocked {
		t.Errorf("got allowed=%v blocked=%v; want allowed", res.Allowed, res.Blocked)
	}
	if res.Confidence != 100 {
		t.Errorf("Confidence = %d; want 100", res.Confidence)
	}
}

func TestFilterHandlerBlocksOnPattern(t *testing.T) {
	h := newTestHandler(t, &stubRuleRepo{patterns: []*biz.PatternRule{{
		ID:             7,
		PatternType:    "keyword",
		Pattern:        "scam",
		TargetField:    "title",
		MatchThreshold: 80,
		Scope:          biz.ScopeAll,
		Category:       "fraud",
		Severity:       4,
	}}})

	body := `{"item_id":"vid-2","type":"video","title":"Biggest SCAM ever"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/filter", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.filter(rec, req)

	var res service.FilterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !res.Blocked {
		t.Fatalf("got %+v; want blocked", res)
	}
	if res.MatchedRule != 7 || res.MatchedBy != "pattern" {
		t.Errorf("matched rule %d by %q; want 7 by pattern", res.MatchedRule, res.MatchedBy)
	}
}

func TestFilterHandlerRejectsBadBody(t *testing.T) {
	h := newTestHandler(t, &stubRuleRepo{})

	req := httptest.NewRequest(http.MethodPost, "/v1/filter", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.filter(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestFilterHandlerMethodDispatch(t *testing.T) {
	h := newTestHandler(t, &stubRuleRepo{})

	tests := []struct {
		name    string
		method  string
		handler http.HandlerFunc
	}{
		{"filter requires POST", http.MethodGet, h.filter},
		{"metrics requires GET", http.MethodPost, h.metrics},
		{"cache stats requires GET", http.MethodDelete, h.cacheStats},
		{"cache clear requires DELETE", http.MethodGet, h.cache},
		{"rebuild requires POST", http.MethodGet, h.rebuildIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			rec := httptest.NewRecorder()
			tt.handler(rec, req)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}

func TestMetricsAndCacheEndpoints(t *testing.T) {
	h := newTestHandler(t, &stubRuleRepo{})

	body := `{"item_id":"vid-3","type":"video","title":"hello"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/filter", strings.NewReader(body))
		h.filter(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	h.metrics(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	var m service.MetricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if m.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d; want 2", m.TotalRequests)
	}

	rec = httptest.NewRecorder()
	h.cacheStats(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
	var cs service.CacheStatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cs); err != nil {
		t.Fatalf("decode cache stats: %v", err)
	}
	if cs.Size != 1 {
		t.Errorf("cache size = %d; want 1", cs.Size)
	}

	rec = httptest.NewRecorder()
	h.cache(rec, httptest.NewRequest(http.MethodDelete, "/v1/cache", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d; want %d", rec.Code, http.StatusNoContent)
	}
	rec = httptest.NewRecorder()
	h.cacheStats(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
	cs = service.CacheStatsResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &cs); err != nil {
		t.Fatalf("decode cache stats: %v", err)
	}
	if cs.Size != 0 {
		t.Errorf("cache size after clear = %d; want 0", cs.Size)
	}
}
