// Package conf defines the bootstrap configuration scanned from the
// config file at startup.
package conf

import "time"

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Engine *Engine `json:"engine"`
}

// Server configures the transport layer.
type Server struct {
	HTTP HTTPServer `json:"http"`
}

// HTTPServer configures the HTTP endpoint.
type HTTPServer struct {
	Network        string `json:"network"`
	Addr           string `json:"addr"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}

// Timeout returns the request timeout with a sane default.
func (s HTTPServer) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Data configures storage backends.
type Data struct {
	Database Database `json:"database"`
	Redis    Redis    `json:"redis"`
}

// Database configures the relational rule store.
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
	Pool   Pool   `json:"pool"`
}

// Pool configures the pgx connection pool.
type Pool struct {
	MaxOpenConns    int32 `json:"max_open_conns"`
	MinIdleConns    int32 `json:"min_idle_conns"`
	MaxConnLifetime int64 `json:"max_conn_lifetime"` // minutes
	MaxConnIdleTime int64 `json:"max_conn_idle_time"` // minutes
}

// Redis configures the bitset backend.
type Redis struct {
	Network             string `json:"network"`
	Addr                string `json:"addr"`
	ReadTimeoutSeconds  int64  `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int64  `json:"write_timeout_seconds"`
}

// Engine configures filtering behavior and its background schedules.
type Engine struct {
	CacheTTLSeconds             int64 `json:"cache_ttl_seconds"`
	CacheMaxEntries             int   `json:"cache_max_entries"`
	SweepIntervalSeconds        int64 `json:"sweep_interval_seconds"`
	SnapshotIntervalSeconds     int64 `json:"snapshot_interval_seconds"`
	IndexRebuildIntervalSeconds int64 `json:"index_rebuild_interval_seconds"`

	Bloom Bloom `json:"bloom"`
}

// Bloom configures the blacklist index filter.
type Bloom struct {
	Bits   uint   `json:"bits"`
	Hashes uint   `json:"hashes"`
	Key    string `json:"key"`
}

// CacheTTL returns the decision cache TTL, defaulting to 30 minutes.
func (e *Engine) CacheTTL() time.Duration {
	if e == nil || e.CacheTTLSeconds <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(e.CacheTTLSeconds) * time.Second
}

// SweepInterval returns the cache sweep interval, defaulting to 60s.
func (e *Engine) SweepInterval() time.Duration {
	if e == nil || e.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(e.SweepIntervalSeconds) * time.Second
}

// SnapshotInterval returns the metrics snapshot interval, defaulting
// to 5 minutes.
func (e *Engine) SnapshotInterval() time.Duration {
	if e == nil || e.SnapshotIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(e.SnapshotIntervalSeconds) * time.Second
}

// IndexRebuildInterval returns the blacklist index rebuild interval,
// defaulting to 15 minutes.
func (e *Engine) IndexRebuildInterval() time.Duration {
	if e == nil || e.IndexRebuildIntervalSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(e.IndexRebuildIntervalSeconds) * time.Second
}

// BloomBits returns the filter size in bits, defaulting to 1MB.
func (e *Engine) BloomBits() uint {
	if e == nil || e.Bloom.Bits == 0 {
		return 1024 * 1024 * 8
	}
	return e.Bloom.Bits
}

// BloomHashes returns the hash-function count, defaulting to 5.
func (e *Engine) BloomHashes() uint {
	if e == nil || e.Bloom.Hashes == 0 {
		return 5
	}
	return e.Bloom.Hashes
}

// BloomKey returns the redis key of the bitset.
func (e *Engine) BloomKey() string {
	if e == nil || e.Bloom.Key == "" {
		return "vidguard:bloom:blacklist"
	}
	return e.Bloom.Key
}

// MaxEntries returns the decision cache capacity; <= 0 lets the cache
// pick its default.
func (e *Engine) MaxEntries() int {
	if e == nil {
		return 0
	}
	return e.CacheMaxEntries
}
