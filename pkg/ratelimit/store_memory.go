package ratelimit

import (
	"container/list"
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryBucketStore keeps one x/time/rate limiter per key. rate.Limiter is a
// token bucket with the same refill semantics as the Redis script, so the two
// stores return identical decisions for the same sequence of calls.
//
// The key set is bounded: when MaxKeys is reached the least recently used
// tenth of the buckets is dropped. A dropped bucket comes back full.
type MemoryBucketStore struct {
	mu      sync.Mutex
	maxKeys int
	entries map[string]*list.Element
	lru     *list.List
	metrics Metrics
}

type memoryBucket struct {
	key     string
	limit   Limit
	limiter *rate.Limiter
}

// NewMemoryBucketStore creates a bounded in-process store. A nil metrics
// recorder is replaced with NoOpMetrics.
func NewMemoryBucketStore(maxKeys int, metrics Metrics) *MemoryBucketStore {
	if maxKeys < 1 {
		maxKeys = DefaultConfig().MaxKeys
	}
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &MemoryBucketStore{
		maxKeys: maxKeys,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		metrics: metrics,
	}
}

// Take implements BucketStore. The store mutex makes each call atomic.
func (s *MemoryBucketStore) Take(_ context.Context, key string, limit Limit, now time.Time, requested int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(key, limit, now)
	allowed := b.limiter.AllowN(now, requested)

	remaining := int(math.Floor(b.limiter.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}

	return Decision{Key: key, Allowed: allowed, Remaining: remaining, Limit: limit}, nil
}

// Len returns the number of live buckets.
func (s *MemoryBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryBucketStore) bucket(key string, limit Limit, now time.Time) *memoryBucket {
	if el, ok := s.entries[key]; ok {
		s.lru.MoveToFront(el)
		b := el.Value.(*memoryBucket)
		if b.limit != limit {
			b.limiter.SetLimitAt(now, rate.Limit(limit.Rate))
			b.limiter.SetBurstAt(now, limit.Burst)
			b.limit = limit
		}
		return b
	}

	if len(s.entries) >= s.maxKeys {
		s.evict()
	}

	b := &memoryBucket{
		key:     key,
		limit:   limit,
		limiter: rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
	}
	s.entries[key] = s.lru.PushFront(b)
	s.metrics.SetActiveKeys(len(s.entries))
	return b
}

func (s *MemoryBucketStore) evict() {
	n := s.maxKeys / 10
	if n < 1 {
		n = 1
	}
	evicted := 0
	for evicted < n {
		el := s.lru.Back()
		if el == nil {
			break
		}
		s.lru.Remove(el)
		delete(s.entries, el.Value.(*memoryBucket).key)
		evicted++
	}
	s.metrics.RecordEviction(evicted)
}
