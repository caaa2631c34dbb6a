package internal

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/lychee-technology/resultmap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	name    string
	version uuid.UUID
}

func (k cacheKey) String() string {
	return k.name + "@" + k.version.String()
}

// ResolutionCache memoizes resolved mappings per (mapping name, domain model version).
// Concurrent requests for the same key share one resolution; failures are not cached.
type ResolutionCache struct {
	enabled bool
	group   singleflight.Group

	mu      sync.RWMutex
	entries map[cacheKey]*resultmap.ResultSetMapping
	current uuid.UUID

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResolutionCache creates a cache. A disabled cache resolves on every call.
func NewResolutionCache(enabled bool) *ResolutionCache {
	return &ResolutionCache{
		enabled: enabled,
		entries: make(map[cacheKey]*resultmap.ResultSetMapping),
	}
}

// GetOrResolve returns the sealed mapping for name at version, running resolve when no
// cached mapping exists.
func (c *ResolutionCache) GetOrResolve(
	ctx context.Context,
	name string,
	version uuid.UUID,
	resolve func() (*resultmap.ResultSetMapping, error),
) (*resultmap.ResultSetMapping, error) {
	if !c.enabled {
		c.misses.Add(1)
		mapping, err := resolve()
		if err != nil {
			return nil, err
		}
		mapping.Seal()
		return mapping, nil
	}

	key := cacheKey{name: name, version: version}
	if mapping, ok := c.lookup(key); ok {
		c.hits.Add(1)
		EmitCacheLookup(ctx, name, true)
		return mapping, nil
	}

	leader := false
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		leader = true
		if mapping, ok := c.lookup(key); ok {
			return mapping, nil
		}
		mapping, err := resolve()
		if err != nil {
			return nil, err
		}
		mapping.Seal()
		c.store(key, mapping)
		return mapping, nil
	})

	if leader {
		c.misses.Add(1)
	} else {
		c.hits.Add(1)
	}
	EmitCacheLookup(ctx, name, !leader)

	if err != nil {
		return nil, err
	}
	return v.(*resultmap.ResultSetMapping), nil
}

func (c *ResolutionCache) lookup(key cacheKey) (*resultmap.ResultSetMapping, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mapping, ok := c.entries[key]
	return mapping, ok
}

func (c *ResolutionCache) store(key cacheKey, mapping *resultmap.ResultSetMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a resolution that finished after the model was replaced must not be cached
	if c.current != uuid.Nil && key.version != c.current {
		return
	}
	c.entries[key] = mapping
}

// Invalidate drops every entry not resolved against current and makes current the only
// version accepted from now on. It returns the number of dropped entries.
func (c *ResolutionCache) Invalidate(current uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = current
	dropped := 0
	for key := range c.entries {
		if key.version != current {
			delete(c.entries, key)
			dropped++
		}
	}
	if dropped > 0 {
		zap.S().Infow("resolution cache invalidated", "version", current.String(), "dropped", dropped)
	}
	return dropped
}

// Clear drops every entry.
func (c *ResolutionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*resultmap.ResultSetMapping)
}

func (c *ResolutionCache) Stats() resultmap.CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return resultmap.CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}
