// Package tokencache holds enterprise chat access tokens in process memory,
// keyed by tenant.
//
// The cache is split into shards, each guarded by its own RWMutex, so readers
// never block each other and writers for tenants in different shards never
// contend. Entries are only ever replaced; staleness is judged by the caller.
package tokencache

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"pipehub/internal/domain/entity"
)

// DefaultShards is the shard count used by New.
const DefaultShards = 32

type shard struct {
	mu      sync.RWMutex
	entries map[int64]entity.CachedToken
}

// Cache is a sharded concurrent map from tenant id to its cached access token.
// The zero value is not usable; create one with New or NewWithShards.
type Cache struct {
	shards []*shard
	mask   uint64
	size   atomic.Int64
}

// New creates a cache with DefaultShards shards.
func New() *Cache {
	return NewWithShards(DefaultShards)
}

// NewWithShards creates a cache with n shards, rounded up to a power of two.
func NewWithShards(n int) *Cache {
	size := 1
	for size < n {
		size <<= 1
	}

	c := &Cache{
		shards: make([]*shard, size),
		mask:   uint64(size - 1),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[int64]entity.CachedToken)}
	}
	return c
}

// Get returns a copy of the token cached for tenantID.
func (c *Cache) Get(tenantID int64) (entity.CachedToken, bool) {
	s := c.shardFor(tenantID)
	s.mu.RLock()
	token, ok := s.entries[tenantID]
	s.mu.RUnlock()
	return token, ok
}

// Put stores token for tenantID, replacing any existing entry. Last write wins.
func (c *Cache) Put(tenantID int64, token entity.CachedToken) {
	s := c.shardFor(tenantID)
	s.mu.Lock()
	_, existed := s.entries[tenantID]
	s.entries[tenantID] = token
	s.mu.Unlock()

	if !existed {
		c.size.Add(1)
	}
}

// Len returns the number of cached entries across all shards.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Register exposes the entry count of this cache as the
// pipehub_token_cache_entries gauge on reg. The gauge reads Len at scrape
// time. A registry holds at most one cache; registering a second one
// returns prometheus.AlreadyRegisteredError.
func (c *Cache) Register(reg prometheus.Registerer) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pipehub_token_cache_entries",
			Help: "Number of tenants with a cached enterprise chat access token",
		},
		func() float64 { return float64(c.Len()) },
	))
}

// ShardCount returns the number of shards.
func (c *Cache) ShardCount() int {
	return len(c.shards)
}

func (c *Cache) shardFor(tenantID int64) *shard {
	return c.shards[mix(uint64(tenantID))&c.mask]
}

// mix spreads sequential tenant ids across shards (splitmix64 finalizer).
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
