package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_PutGet(t *testing.T) {
	c := New[string](0)
	c.Put("k1", "v1", time.Minute)

	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected hit for k1")
	}
	if got != "v1" {
		t.Errorf("Get(k1) = %q; want v1", got)
	}

	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := New[int](0)
	c.Put("k", 1, time.Minute)
	c.Put("k", 2, time.Minute)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Errorf("Get(k) = %d, %v; want 2, true", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_ExpiredIsMiss(t *testing.T) {
	c := New[string](0)
	c.Put("k", "v", -time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should be a miss")
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New[string](0)
	c.Put("live", "v", time.Minute)
	c.Put("dead1", "v", -time.Second)
	c.Put("dead2", "v", -time.Second)

	before := c.Len()
	removed := c.Sweep()
	if removed != 2 {
		t.Errorf("Sweep() removed %d; want 2", removed)
	}
	if c.Len() >= before {
		t.Errorf("size did not decrease: before=%d after=%d", before, c.Len())
	}
	if _, ok := c.Get("live"); !ok {
		t.Error("sweep must not remove live entries")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New[string](0)
	c.Put("a", "v", time.Minute)
	c.Put("b", "v", time.Minute)

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", c.Len())
	}
}

func TestCache_Stats(t *testing.T) {
	c := New[string](0)
	c.Put("k", "v", time.Minute)

	c.Get("k")      // hit
	c.Get("absent") // miss

	stats := c.Stats()
	if stats.Size != 1 {
		t.Errorf("Stats().Size = %d; want 1", stats.Size)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Stats().HitRate = %f; want 0.5", stats.HitRate)
	}
}

func TestCache_StatsEmpty(t *testing.T) {
	c := New[string](0)
	stats := c.Stats()
	if stats.Size != 0 || stats.HitRate != 0 {
		t.Errorf("empty cache stats = %+v; want zero", stats)
	}
}

func TestCache_CapBound(t *testing.T) {
	// Cap of shardCount gives one slot per shard, so a second insert
	// into any shard must evict rather than grow.
	c := New[int](shardCount)
	for i := 0; i < shardCount*4; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i, time.Minute)
	}
	if c.Len() > shardCount {
		t.Errorf("Len() = %d; want <= %d", c.Len(), shardCount)
	}
}

func TestCache_EvictsExpiredBeforeLive(t *testing.T) {
	c := New[int](shardCount)

	// Fill every shard slot with expired entries, then insert live
	// ones: the expired entries must be the ones to go.
	for i := 0; i < shardCount*2; i++ {
		c.Put(fmt.Sprintf("old-%d", i), i, -time.Second)
	}
	c.Put("fresh", 42, time.Minute)

	got, ok := c.Get("fresh")
	if !ok || got != 42 {
		t.Errorf("Get(fresh) = %d, %v; want 42, true", got, ok)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](0)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%37)
				c.Put(key, g, time.Minute)
				c.Get(key)
				if i%50 == 0 {
					c.Sweep()
				}
			}
		}(g)
	}
	wg.Wait()
}
