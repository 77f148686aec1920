package server

import (
	"encoding/json"
	"errors"
	nethttp "net/http"

	"vidguard/internal/conf"
	"vidguard/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer creates an HTTP server serving the filter API and the
// prometheus scrape endpoint.
func NewHTTPServer(c *conf.Server, svc *service.FilterService, logger log.Logger) *http.Server {
	opts := []http.ServerOption{
		http.Timeout(c.HTTP.Timeout()),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	srv := http.NewServer(opts...)

	h := &filterHandler{svc: svc, log: log.NewHelper(logger)}
	srv.HandleFunc("/v1/filter", h.filter)
	srv.HandleFunc("/v1/metrics", h.metrics)
	srv.HandleFunc("/v1/cache/stats", h.cacheStats)
	srv.HandleFunc("/v1/cache", h.cache)
	srv.HandleFunc("/v1/index/rebuild", h.rebuildIndex)
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}

type filterHandler struct {
	svc *service.FilterService
	log *log.Helper
}

func (h *filterHandler) filter(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req service.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nethttp.StatusBadRequest, "invalid request body")
		return
	}
	h.writeJSON(w, h.svc.FilterContent(r.Context(), &req))
}

func (h *filterHandler) metrics(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.writeJSON(w, h.svc.Metrics())
}

func (h *filterHandler) cacheStats(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.writeJSON(w, h.svc.CacheStats())
}

func (h *filterHandler) cache(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodDelete {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.svc.ClearCache()
	w.WriteHeader(nethttp.StatusNoContent)
}

func (h *filterHandler) rebuildIndex(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	res, err := h.svc.RebuildIndex(r.Context())
	if err != nil {
		h.log.WithContext(r.Context()).Errorf("rebuild index: %v", err)
		writeError(w, nethttp.StatusInternalServerError, "index rebuild failed")
		return
	}
	h.writeJSON(w, res)
}

func (h *filterHandler) writeJSON(w nethttp.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, nethttp.ErrHandlerTimeout) {
		h.log.Errorf("write response: %v", err)
	}
}

func writeError(w nethttp.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
