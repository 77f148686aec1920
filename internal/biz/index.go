package biz

import (
	"context"
	"sync/atomic"

	"vidguard/internal/conf"
	"vidguard/internal/pkg/bloom"
	"vidguard/internal/pkg/match"
	pkgredis "vidguard/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

// BlacklistIndexer is consulted before the blacklist lookups of an
// evaluation. A false answer is definitive and lets the engine skip
// storage entirely; implementations must answer true whenever unsure.
type BlacklistIndexer interface {
	MayContain(ctx context.Context, keys ...string) bool
}

// BlacklistItemKey is the index key for an item-level blacklist rule.
func BlacklistItemKey(itemID string, t ContentType) string {
	return "item:" + itemID + ":" + string(t)
}

// BlacklistChannelKey is the index key for a channel-level blacklist
// rule. Channel names are folded so display-form variants agree.
func BlacklistChannelKey(channelName string) string {
	return "channel:" + match.Normalize(channelName)
}

// BlacklistIndex is a bloom filter over the identities of live
// blacklist rules, shared through redis. False positives only cost the
// two lookups that would have run anyway; a false negative would skip a
// real rule, so until a rebuild has completed the index answers true
// for everything.
type BlacklistIndex struct {
	filter *bloom.Filter
	repo   RuleRepo
	ready  atomic.Bool
	log    *log.Helper
}

// NewBlacklistIndex creates the index. It starts pessimistic until the
// first rebuild populates it.
func NewBlacklistIndex(store pkgredis.Cache, ec *conf.Engine, repo RuleRepo, logger log.Logger) *BlacklistIndex {
	return &BlacklistIndex{
		filter: bloom.NewFilter(store, ec.BloomKey(), ec.BloomBits(), ec.BloomHashes()),
		repo:   repo,
		log:    log.NewHelper(logger),
	}
}

// MayContain reports whether any key could belong to a live blacklist
// rule. Index errors and in-progress rebuilds degrade to true so the
// real lookups are never skipped on uncertainty.
func (ix *BlacklistIndex) MayContain(ctx context.Context, keys ...string) bool {
	if !ix.ready.Load() {
		return true
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		exists, err := ix.filter.Exists(ctx, []byte(key))
		if err != nil {
			ix.log.Warnf("blacklist index check %q: %v", key, err)
			return true
		}
		if exists {
			return true
		}
	}
	return false
}

// Rebuild resets the bitset and re-adds every live blacklist key,
// returning the number of keys indexed. The index is marked not-ready
// for the duration, which keeps evaluations on the lookup path instead
// of trusting a half-built filter.
func (ix *BlacklistIndex) Rebuild(ctx context.Context) (int, error) {
	ix.ready.Store(false)

	keys, err := ix.repo.ListActiveBlacklistKeys(ctx)
	if err != nil {
		return 0, err
	}
	if err := ix.filter.Reset(ctx); err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := ix.filter.Add(ctx, []byte(key)); err != nil {
			return 0, err
		}
	}

	ix.ready.Store(true)
	ix.log.Infof("blacklist index rebuilt with %d keys", len(keys))
	return len(keys), nil
}
