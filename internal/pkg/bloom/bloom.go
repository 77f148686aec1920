package bloom

import (
	"context"
	_ "embed"
	"errors"

	"vidguard/internal/pkg/hash"
	"vidguard/internal/pkg/redis"
)

var (
	// ErrTooLargeOffset indicates the offset is too large in bitset.
	ErrTooLargeOffset = errors.New("too large offset")

	//go:embed set_script.lua
	setLuaScript string
	setScript    = redis.NewScript(setLuaScript)

	//go:embed get_script.lua
	getLuaScript string
	getScript    = redis.NewScript(getLuaScript)
)

// Filter is a Bloom filter backed by a shared redis bitset. The engine
// keeps one over the identities of active blacklist rules so that items
// with no chance of a blacklist hit skip the storage lookups entirely.
type Filter struct {
	bitSet         bitSetProvider
	bits           uint
	kHashFunctions uint
}

// NewFilter creates a new Bloom filter with the given parameters.
func NewFilter(store redis.Cache, key string, bits uint, kHashFunctions uint) *Filter {
	return &Filter{
		bits:           bits,
		bitSet:         newRedisBitSet(store, key, bits),
		kHashFunctions: kHashFunctions,
	}
}

// getLocations computes the bit locations for the given data.
func (f *Filter) getLocations(data []byte) []uint {
	locations := make([]uint, f.kHashFunctions)
	for i := uint(0); i < f.kHashFunctions; i++ {
		hashVal := hash.Hash(append(data, byte(i)))
		locations[i] = uint(hashVal % uint64(f.bits))
	}
	return locations
}

// Add adds the given data to the Bloom filter.
func (f *Filter) Add(ctx context.Context, data []byte) error {
	locations := f.getLocations(data)
	return f.bitSet.set(ctx, locations)
}

// Exists reports whether the given data may exist in the Bloom filter.
// A false result is definitive; a true result may be a false positive.
func (f *Filter) Exists(ctx context.Context, data []byte) (bool, error) {
	locations := f.getLocations(data)
	isSet, err := f.bitSet.check(ctx, locations)
	if err != nil {
		return false, err
	}
	return isSet, nil
}

// Reset clears the underlying bitset. Used before a full rebuild so
// removed rules stop contributing false positives.
func (f *Filter) Reset(ctx context.Context) error {
	return f.bitSet.del(ctx)
}

// Expire sets a TTL on the bitset so a crashed rebuild cannot leave a
// stale filter behind forever.
func (f *Filter) Expire(ctx context.Context, seconds int) error {
	_, err := f.bitSet.expire(ctx, seconds)
	return err
}
