package service

import (
	"context"
	"sync"
	"time"

	"redirect-manager/internal/model"
)

// pathResolver answers one resolution question; CachedResolver decorates
// any implementation of it, normally a DirectResolver.
type pathResolver interface {
	Resolve(ctx context.Context, path string) (*model.RuleMatch, error)
}

// cacheSweepThreshold is the map size past which inserts sweep expired
// entries, so 404-bound scanner traffic cannot grow the cache without
// bound between admin writes.
const cacheSweepThreshold = 1000

type cacheEntry struct {
	// match is nil for a negative entry: the path resolved to no rule and
	// that answer is cached too.
	match     *model.RuleMatch
	expiresAt time.Time
}

// CachedResolver memoizes resolution answers, hits and misses alike, for
// a fixed TTL. Lookup errors are never cached. Writes to the rule set go
// through Purge, so staleness is bounded by the TTL only for changes
// made outside this process. Expired entries are dropped lazily on
// lookup and swept on insert once the map grows past the threshold.
type CachedResolver struct {
	source pathResolver
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCachedResolver(source pathResolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		source:  source,
		ttl:     ttl,
		entries: map[string]cacheEntry{},
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, path string) (*model.RuleMatch, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()

	if ok {
		if now.Before(entry.expiresAt) {
			return copyMatch(entry.match), nil
		}
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
	}

	match, err := c.source.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.entries) >= cacheSweepThreshold {
		c.sweepLocked(now)
	}
	c.entries[path] = cacheEntry{match: copyMatch(match), expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return match, nil
}

func (c *CachedResolver) sweepLocked(now time.Time) {
	for path, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, path)
		}
	}
}

func (c *CachedResolver) Purge() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.mu.Unlock()
}

// Len reports the number of entries currently held, expired ones
// included.
func (c *CachedResolver) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// copyMatch shields cached state from callers that mutate the returned
// match during destination post-processing.
func copyMatch(match *model.RuleMatch) *model.RuleMatch {
	if match == nil {
		return nil
	}
	out := *match
	return &out
}
