package http

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// RateLimiter is a per-client token bucket. Buckets live in a bounded LRU so
// idle clients are evicted instead of swept by a cleanup loop.
type RateLimiter struct {
	mu        sync.Mutex
	capacity  int
	refillDur time.Duration
	clients   *lru.Cache[string, *clientBucket]
	now       func() time.Time
}

// NewRateLimiter allows capacity requests per refillDur for each client.
// A capacity of zero or less disables limiting.
func NewRateLimiter(capacity int, refillDur time.Duration, maxClients int) (*RateLimiter, error) {
	if maxClients <= 0 {
		maxClients = 1
	}
	clients, err := lru.New[string, *clientBucket](maxClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		capacity:  capacity,
		refillDur: refillDur,
		clients:   clients,
		now:       time.Now,
	}, nil
}

func (r *RateLimiter) Allow(client string) bool {
	if r == nil || r.capacity <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	bucket, ok := r.clients.Get(client)
	if !ok {
		r.clients.Add(client, &clientBucket{tokens: r.capacity - 1, lastRefill: now})
		return true
	}

	if now.Sub(bucket.lastRefill) >= r.refillDur {
		bucket.tokens = r.capacity
		bucket.lastRefill = now
	}
	if bucket.tokens <= 0 {
		return false
	}
	bucket.tokens--
	return true
}

// Clients is the number of buckets currently held.
func (r *RateLimiter) Clients() int {
	return r.clients.Len()
}
