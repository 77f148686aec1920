package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vidguard/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type ruleRepo struct {
	data *Data
	log  *log.Helper
}

// NewRuleRepo creates the rule-storage collaborator.
func NewRuleRepo(data *Data, logger log.Logger) biz.RuleRepo {
	return &ruleRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

const ruleColumns = `id, item_id, item_type, channel_name, is_channel_rule, is_active,
	priority, expires_at, reason, severity, category, match_count, last_matched`

// liveRule is the WHERE fragment shared by every lookup: active and
// not expired.
const liveRule = `is_active AND (expires_at IS NULL OR expires_at > now())`

// FindActiveWhitelist implements biz.RuleRepo.
func (r *ruleRepo) FindActiveWhitelist(ctx context.Context, itemID string, t biz.ContentType) (*biz.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM whitelist_rules
		WHERE item_id = $1 AND item_type = $2 AND NOT is_channel_rule AND ` + liveRule + `
		ORDER BY priority DESC, id ASC LIMIT 1`
	return r.findOne(ctx, biz.RuleKindWhitelist, query, itemID, string(t))
}

// FindActiveWhitelistChannel implements biz.RuleRepo.
func (r *ruleRepo) FindActiveWhitelistChannel(ctx context.Context, channelName string) (*biz.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM whitelist_rules
		WHERE lower(channel_name) = lower($1) AND is_channel_rule AND ` + liveRule + `
		ORDER BY priority DESC, id ASC LIMIT 1`
	return r.findOne(ctx, biz.RuleKindWhitelist, query, channelName)
}

// FindActiveBlacklist implements biz.RuleRepo.
func (r *ruleRepo) FindActiveBlacklist(ctx context.Context, itemID string, t biz.ContentType) (*biz.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM blacklist_rules
		WHERE item_id = $1 AND item_type = $2 AND NOT is_channel_rule AND ` + liveRule + `
		ORDER BY priority DESC, id ASC LIMIT 1`
	return r.findOne(ctx, biz.RuleKindBlacklist, query, itemID, string(t))
}

// FindActiveBlacklistChannel implements biz.RuleRepo.
func (r *ruleRepo) FindActiveBlacklistChannel(ctx context.Context, channelName string) (*biz.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM blacklist_rules
		WHERE lower(channel_name) = lower($1) AND is_channel_rule AND ` + liveRule + `
		ORDER BY priority DESC, id ASC LIMIT 1`
	return r.findOne(ctx, biz.RuleKindBlacklist, query, channelName)
}

func (r *ruleRepo) findOne(ctx context.Context, kind biz.RuleKind, query string, args ...any) (*biz.Rule, error) {
	row := r.data.Pool.QueryRow(ctx, query, args...)
	rule, err := scanRule(row, kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	// Malformed rows never reach the engine.
	if err := rule.Validate(); err != nil {
		r.log.Warnf("dropping malformed %s rule: %v", kind, err)
		return nil, nil
	}
	return rule, nil
}

// ListActivePatternRules implements biz.RuleRepo.
func (r *ruleRepo) ListActivePatternRules(ctx context.Context, scope biz.ContentType) ([]*biz.PatternRule, error) {
	query := `SELECT id, pattern_type, pattern, target_field, match_threshold, priority,
			is_case_sensitive, scope, category, severity, match_count, last_matched
		FROM pattern_rules
		WHERE (scope = $1 OR scope = 'all') AND is_active
		ORDER BY priority DESC, id ASC`

	rows, err := r.data.Pool.Query(ctx, query, string(scope))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*biz.PatternRule
	for rows.Next() {
		rule, err := scanPatternRule(rows)
		if err != nil {
			return nil, err
		}
		if err := rule.Validate(); err != nil {
			r.log.Warnf("dropping malformed pattern rule: %v", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// IncrementMatchCount implements biz.RuleRepo.
func (r *ruleRepo) IncrementMatchCount(ctx context.Context, ruleID int64, kind biz.MatchSource) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := `UPDATE ` + table + `
		SET match_count = match_count + 1, last_matched = now(), updated_at = now()
		WHERE id = $1`
	_, err = r.data.Pool.Exec(ctx, query, ruleID)
	return err
}

// CountActiveRules implements biz.RuleRepo.
func (r *ruleRepo) CountActiveRules(ctx context.Context) (biz.RuleCounts, error) {
	var counts biz.RuleCounts
	queries := []struct {
		query string
		dst   *int64
	}{
		{`SELECT count(*) FROM whitelist_rules WHERE ` + liveRule, &counts.Whitelist},
		{`SELECT count(*) FROM blacklist_rules WHERE ` + liveRule, &counts.Blacklist},
		{`SELECT count(*) FROM pattern_rules WHERE is_active`, &counts.Pattern},
	}
	for _, q := range queries {
		if err := r.data.Pool.QueryRow(ctx, q.query).Scan(q.dst); err != nil {
			return biz.RuleCounts{}, err
		}
	}
	return counts, nil
}

// ListActiveBlacklistKeys implements biz.RuleRepo.
func (r *ruleRepo) ListActiveBlacklistKeys(ctx context.Context) ([]string, error) {
	query := `SELECT item_id, item_type, channel_name, is_channel_rule
		FROM blacklist_rules WHERE ` + liveRule

	rows, err := r.data.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var itemID, itemType, channelName string
		var isChannel bool
		if err := rows.Scan(&itemID, &itemType, &channelName, &isChannel); err != nil {
			return nil, err
		}
		if isChannel {
			keys = append(keys, biz.BlacklistChannelKey(channelName))
		} else {
			keys = append(keys, biz.BlacklistItemKey(itemID, biz.ContentType(itemType)))
		}
	}
	return keys, rows.Err()
}

func tableFor(kind biz.MatchSource) (string, error) {
	switch kind {
	case biz.MatchSourceWhitelist:
		return "whitelist_rules", nil
	case biz.MatchSourceBlacklist:
		return "blacklist_rules", nil
	case biz.MatchSourcePattern:
		return "pattern_rules", nil
	default:
		return "", fmt.Errorf("unknown rule class %q", kind)
	}
}

func scanRule(row pgx.Row, kind biz.RuleKind) (*biz.Rule, error) {
	var rule biz.Rule
	var expiresAt, lastMatched pgtype.Timestamptz

	err := row.Scan(&rule.ID, &rule.ItemID, (*string)(&rule.Type), &rule.ChannelName,
		&rule.IsChannelRule, &rule.IsActive, &rule.Priority, &expiresAt,
		&rule.Reason, &rule.Severity, &rule.Category, &rule.MatchCount, &lastMatched)
	if err != nil {
		return nil, err
	}
	rule.Kind = kind
	rule.ExpiresAt = timePtr(expiresAt)
	rule.LastMatched = timePtr(lastMatched)
	return &rule, nil
}

func scanPatternRule(row pgx.Row) (*biz.PatternRule, error) {
	var rule biz.PatternRule
	var lastMatched pgtype.Timestamptz

	err := row.Scan(&rule.ID, (*string)(&rule.PatternType), &rule.Pattern,
		(*string)(&rule.TargetField), &rule.MatchThreshold, &rule.Priority,
		&rule.IsCaseSensitive, (*string)(&rule.Scope), &rule.Category,
		&rule.Severity, &rule.MatchCount, &lastMatched)
	if err != nil {
		return nil, err
	}
	rule.LastMatched = timePtr(lastMatched)
	return &rule, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
