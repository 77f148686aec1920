package biz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"vidguard/internal/pkg/match"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	directMatchConfidence  = 100
	channelMatchConfidence = 95

	incrementTimeout = 5 * time.Second
)

// MatchEngine evaluates one item against the three rule classes in
// strict precedence: whitelist, then patterns, then blacklist, falling
// back to allow. Priority orders rules within a class, never across
// classes.
type MatchEngine struct {
	repo  RuleRepo
	index BlacklistIndexer
	log   *log.Helper
}

// NewMatchEngine creates a MatchEngine. index may be nil, in which case
// every evaluation takes the blacklist lookup path.
func NewMatchEngine(repo RuleRepo, index BlacklistIndexer, logger log.Logger) *MatchEngine {
	return &MatchEngine{
		repo:  repo,
		index: index,
		log:   log.NewHelper(logger),
	}
}

// Evaluate decides an item. This is the single fail-open boundary:
// any unresolved internal error degrades to the default allow, and no
// error ever reaches the caller.
func (e *MatchEngine) Evaluate(ctx context.Context, item *ContentItem) *FilterResult {
	res, err := e.evaluate(ctx, item)
	if err != nil {
		e.log.Errorf("evaluate item %s (%s): %v", item.ItemID, item.Type, err)
		return &FilterResult{
			Allowed:    true,
			Confidence: 0,
			Reason:     "internal error, content allowed",
		}
	}
	return res
}

func (e *MatchEngine) evaluate(ctx context.Context, item *ContentItem) (*FilterResult, error) {
	if res, err := e.checkWhitelist(ctx, item); err != nil || res != nil {
		return res, err
	}
	if res, err := e.checkPatterns(ctx, item); err != nil || res != nil {
		return res, err
	}
	if res, err := e.checkBlacklist(ctx, item); err != nil || res != nil {
		return res, err
	}
	return &FilterResult{
		Allowed:    true,
		Confidence: directMatchConfidence,
		Reason:     "no matching rules",
	}, nil
}

// checkWhitelist looks for a direct item whitelist, then for videos a
// channel-level whitelist.
func (e *MatchEngine) checkWhitelist(ctx context.Context, item *ContentItem) (*FilterResult, error) {
	rule, err := e.repo.FindActiveWhitelist(ctx, item.ItemID, item.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: whitelist for item %s: %w", ErrRuleLookup, item.ItemID, err)
	}
	if rule = e.usable(rule); rule != nil {
		return e.whitelistResult(ctx, rule, directMatchConfidence), nil
	}

	if item.Type != ContentTypeVideo || item.ChannelName == "" {
		return nil, nil
	}
	rule, err = e.repo.FindActiveWhitelistChannel(ctx, item.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("%w: channel whitelist for %q: %w", ErrRuleLookup, item.ChannelName, err)
	}
	if rule = e.usable(rule); rule != nil {
		return e.whitelistResult(ctx, rule, channelMatchConfidence), nil
	}
	return nil, nil
}

func (e *MatchEngine) whitelistResult(ctx context.Context, rule *Rule, confidence int) *FilterResult {
	e.recordMatch(ctx, rule.ID, MatchSourceWhitelist)
	reason := rule.Reason
	if reason == "" {
		reason = "whitelisted"
	}
	return &FilterResult{
		Allowed:     true,
		Whitelisted: true,
		MatchedBy:   MatchSourceWhitelist,
		MatchedRule: rule.ID,
		Confidence:  confidence,
		Category:    rule.Category,
		Severity:    rule.Severity,
		Reason:      reason,
	}
}

// checkPatterns evaluates active pattern rules in priority order; the
// first rule whose matcher confidence reaches its own threshold wins.
// A rule that fails to compile is logged and skipped, never escalated.
func (e *MatchEngine) checkPatterns(ctx context.Context, item *ContentItem) (*FilterResult, error) {
	rules, err := e.repo.ListActivePatternRules(ctx, item.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern rules for scope %s: %w", ErrRuleLookup, item.Type, err)
	}

	// Storage already orders by priority desc, id asc; re-sorting is
	// cheap and keeps the tie-break deterministic regardless of the
	// repo implementation.
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})

	fields := match.Fields{
		Title:       item.Title,
		Channel:     item.ChannelName,
		Description: item.Description,
		Tags:        item.Tags,
	}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			e.log.Warnf("skipping malformed pattern rule: %v", err)
			continue
		}
		text := match.SearchText(rule.TargetField, fields)
		res, err := match.Evaluate(rule.PatternType, rule.Pattern, text, rule.IsCaseSensitive)
		if err != nil {
			e.log.Warnf("%v: rule %d on item %s: %v", ErrPatternCompile, rule.ID, item.ItemID, err)
			continue
		}
		if !res.Matched || res.Confidence < rule.MatchThreshold {
			continue
		}
		e.recordMatch(ctx, rule.ID, MatchSourcePattern)
		return &FilterResult{
			Blocked:     true,
			MatchedBy:   MatchSourcePattern,
			MatchedRule: rule.ID,
			Confidence:  res.Confidence,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Reason:      res.Reason,
		}, nil
	}
	return nil, nil
}

// checkBlacklist mirrors the whitelist step for the blacklist class,
// preceded by the index fast path: a definite index miss means no live
// blacklist rule can apply, so both lookups are skipped.
func (e *MatchEngine) checkBlacklist(ctx context.Context, item *ContentItem) (*FilterResult, error) {
	if e.index != nil {
		keys := []string{BlacklistItemKey(item.ItemID, item.Type)}
		if item.Type == ContentTypeVideo && item.ChannelName != "" {
			keys = append(keys, BlacklistChannelKey(item.ChannelName))
		}
		if !e.index.MayContain(ctx, keys...) {
			return nil, nil
		}
	}

	rule, err := e.repo.FindActiveBlacklist(ctx, item.ItemID, item.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: blacklist for item %s: %w", ErrRuleLookup, item.ItemID, err)
	}
	if rule = e.usable(rule); rule != nil {
		return e.blacklistResult(ctx, rule, directMatchConfidence), nil
	}

	if item.Type != ContentTypeVideo || item.ChannelName == "" {
		return nil, nil
	}
	rule, err = e.repo.FindActiveBlacklistChannel(ctx, item.ChannelName)
	if err != nil {
		return nil, fmt.Errorf("%w: channel blacklist for %q: %w", ErrRuleLookup, item.ChannelName, err)
	}
	if rule = e.usable(rule); rule != nil {
		return e.blacklistResult(ctx, rule, channelMatchConfidence), nil
	}
	return nil, nil
}

func (e *MatchEngine) blacklistResult(ctx context.Context, rule *Rule, confidence int) *FilterResult {
	e.recordMatch(ctx, rule.ID, MatchSourceBlacklist)
	reason := rule.Reason
	if reason == "" {
		reason = "blacklisted"
	}
	return &FilterResult{
		Blocked:     true,
		MatchedBy:   MatchSourceBlacklist,
		MatchedRule: rule.ID,
		Confidence:  confidence,
		Category:    rule.Category,
		Severity:    rule.Severity,
		Reason:      reason,
	}
}

// usable drops rules the repo should not have returned: malformed rows
// and rules that expired between query and evaluation.
func (e *MatchEngine) usable(rule *Rule) *Rule {
	if rule == nil {
		return nil
	}
	if err := rule.Validate(); err != nil {
		e.log.Warnf("skipping malformed rule: %v", err)
		return nil
	}
	if !rule.Live(time.Now()) {
		return nil
	}
	return rule
}

// recordMatch bumps the matched rule's counters in the background.
// Fire and forget: the decision never waits on it, and a failure is
// only logged.
func (e *MatchEngine) recordMatch(ctx context.Context, ruleID int64, kind MatchSource) {
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, incrementTimeout)
		defer cancel()
		if err := e.repo.IncrementMatchCount(ctx, ruleID, kind); err != nil {
			e.log.Errorf("increment match count for %s rule %d: %v", kind, ruleID, err)
		}
	}()
}
