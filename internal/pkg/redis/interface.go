package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Nil is re-exported so callers can test for missing keys without
// importing the driver directly.
const Nil = redis.Nil

// NewScript is re-exported for packages that embed Lua scripts.
var NewScript = redis.NewScript

// Cache is the subset of redis operations the engine needs. The bloom
// bitset is the only consumer; keeping the interface narrow keeps
// fakes trivial.
type Cache interface {
	Exists(ctx context.Context, key string) (bool, error)

	ScriptRun(ctx context.Context, script *redis.Script, keys []string,
		args ...any) (any, error)

	Del(ctx context.Context, keys ...string) (int64, error)

	Expire(ctx context.Context, key string, seconds int) (bool, error)
}
