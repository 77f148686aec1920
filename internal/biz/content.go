package biz

import (
	"time"

	"vidguard/internal/pkg/hash"
)

// ContentType identifies what kind of item is being filtered.
type ContentType string

const (
	ContentTypeVideo    ContentType = "video"
	ContentTypePlaylist ContentType = "playlist"
	ContentTypeChannel  ContentType = "channel"

	// ScopeAll is only valid on pattern rules and matches every
	// content type.
	ScopeAll ContentType = "all"
)

// MatchSource identifies which rule class produced a decision.
type MatchSource string

const (
	MatchSourceWhitelist MatchSource = "whitelist"
	MatchSourcePattern   MatchSource = "pattern"
	MatchSourceBlacklist MatchSource = "blacklist"
)

// ContentItem is an immutable candidate flowing through the filter.
type ContentItem struct {
	ID          string
	ItemID      string
	Type        ContentType
	Title       string
	ChannelName string
	Description string
	Tags        []string
}

// Fingerprint derives the deterministic cache key for an item.
// SHA-256 over the identifying fields; separator keeps distinct field
// combinations from colliding.
func (c *ContentItem) Fingerprint() string {
	return hash.HashTextSha256(c.ItemID + "\x1f" + string(c.Type) + "\x1f" + c.Title + "\x1f" + c.ChannelName)
}

// FilterResult is the decision for a single item. Allowed and Blocked
// are mutually exclusive; an unmatched item is allowed.
type FilterResult struct {
	Allowed     bool
	Blocked     bool
	Whitelisted bool
	Reason      string
	MatchedBy   MatchSource
	MatchedRule int64
	Confidence  int
	Category    string
	Severity    int32

	Cached       bool
	ResponseTime time.Duration
}
