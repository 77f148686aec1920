package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidguard/internal/pkg/match"
)

// Error taxonomy. Everything internal resolves to one of these before
// the fail-open boundary in Evaluate converts it to an allow.
var (
	// ErrRuleLookup marks a failed rule-storage query.
	ErrRuleLookup = errors.New("rule lookup failed")
	// ErrPatternCompile marks a malformed regex or wildcard pattern.
	ErrPatternCompile = errors.New("pattern compile failed")
	// ErrMetricsPersist marks a failed snapshot write.
	ErrMetricsPersist = errors.New("metrics persist failed")
)

// RuleKind tags the class of an item rule.
type RuleKind string

const (
	RuleKindWhitelist RuleKind = "whitelist"
	RuleKindBlacklist RuleKind = "blacklist"
)

// Rule is a whitelist or blacklist entry, tagged by Kind. Item rules
// target one (itemId, type); channel rules target every video of a
// channel. Only MatchCount and LastMatched are ever mutated by the
// engine, as a side effect of a match.
type Rule struct {
	ID            int64
	Kind          RuleKind
	ItemID        string
	Type          ContentType
	ChannelName   string
	IsChannelRule bool
	IsActive      bool
	Priority      int32
	ExpiresAt     *time.Time
	Reason        string
	Severity      int32
	Category      string
	MatchCount    int64
	LastMatched   *time.Time
}

// Validate rejects malformed rows at the storage boundary so they can
// never short-circuit matching.
func (r *Rule) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("rule id %d invalid", r.ID)
	}
	if r.Kind != RuleKindWhitelist && r.Kind != RuleKindBlacklist {
		return fmt.Errorf("rule %d: unknown kind %q", r.ID, r.Kind)
	}
	if r.IsChannelRule {
		if r.ChannelName == "" {
			return fmt.Errorf("rule %d: channel rule without channel name", r.ID)
		}
		return nil
	}
	if r.ItemID == "" {
		return fmt.Errorf("rule %d: item rule without item id", r.ID)
	}
	switch r.Type {
	case ContentTypeVideo, ContentTypePlaylist, ContentTypeChannel:
		return nil
	default:
		return fmt.Errorf("rule %d: unknown content type %q", r.ID, r.Type)
	}
}

// Live reports whether the rule participates in evaluation at now.
func (r *Rule) Live(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// PatternRule blocks items whose derived search text matches its
// pattern with confidence at or above its own threshold.
type PatternRule struct {
	ID              int64
	PatternType     match.Kind
	Pattern         string
	TargetField     match.Field
	MatchThreshold  int
	Priority        int32
	IsCaseSensitive bool
	Scope           ContentType
	Category        string
	Severity        int32
	MatchCount      int64
	LastMatched     *time.Time
}

// Validate rejects malformed pattern rows at the storage boundary.
func (r *PatternRule) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("pattern rule id %d invalid", r.ID)
	}
	switch r.PatternType {
	case match.KindKeyword, match.KindRegex, match.KindWildcard, match.KindFuzzy:
	default:
		return fmt.Errorf("pattern rule %d: unknown pattern type %q", r.ID, r.PatternType)
	}
	if r.Pattern == "" {
		return fmt.Errorf("pattern rule %d: empty pattern", r.ID)
	}
	if r.MatchThreshold < 0 || r.MatchThreshold > 100 {
		return fmt.Errorf("pattern rule %d: threshold %d out of range", r.ID, r.MatchThreshold)
	}
	switch r.Scope {
	case ContentTypeVideo, ContentTypePlaylist, ContentTypeChannel, ScopeAll:
		return nil
	default:
		return fmt.Errorf("pattern rule %d: unknown scope %q", r.ID, r.Scope)
	}
}

// RuleCounts is the per-class count of active rules.
type RuleCounts struct {
	Whitelist int64
	Blacklist int64
	Pattern   int64
}

// Total sums the classes.
func (c RuleCounts) Total() int64 {
	return c.Whitelist + c.Blacklist + c.Pattern
}

// RuleRepo is the rule-storage collaborator. Find methods return the
// highest-priority live match or (nil, nil) when there is none; ties on
// priority break by ascending rule id. ListActivePatternRules returns
// rules whose scope covers the given type, priority descending, id
// ascending.
type RuleRepo interface {
	FindActiveWhitelist(ctx context.Context, itemID string, t ContentType) (*Rule, error)
	FindActiveWhitelistChannel(ctx context.Context, channelName string) (*Rule, error)
	FindActiveBlacklist(ctx context.Context, itemID string, t ContentType) (*Rule, error)
	FindActiveBlacklistChannel(ctx context.Context, channelName string) (*Rule, error)
	ListActivePatternRules(ctx context.Context, scope ContentType) ([]*PatternRule, error)
	IncrementMatchCount(ctx context.Context, ruleID int64, kind MatchSource) error
	CountActiveRules(ctx context.Context) (RuleCounts, error)

	// ListActiveBlacklistKeys returns the index keys of every live
	// blacklist rule, for blacklist-index rebuilds.
	ListActiveBlacklistKeys(ctx context.Context) ([]string, error)
}
