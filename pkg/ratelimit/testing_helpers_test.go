package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// manualClock only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	// Whole seconds keep float conversions in the Lua script exact.
	return &manualClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

type storeFactory struct {
	name string
	make func(t *testing.T) BucketStore
}

func allStores() []storeFactory {
	return []storeFactory{
		{name: "redis", make: func(t *testing.T) BucketStore {
			_, client := newMiniredis(t)
			return NewRedisBucketStore(client, time.Hour)
		}},
		{name: "memory", make: func(t *testing.T) BucketStore {
			return NewMemoryBucketStore(100, nil)
		}},
	}
}
