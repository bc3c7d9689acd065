// Package caching fronts the per-event power-levels parse with a
// process-wide ristretto cache, the same role NewRistrettoCache plays for
// dendrite's various per-request lookups (internal/caching/cache_ristretto_test.go).
// stateres is its one caller, through its package-level powerLevelsCache:
// the once-per-View memoization in powerlevels.View already makes repeated
// field access on a single View free, so this cache exists to avoid
// re-parsing the same m.room.power_levels content across distinct View
// instances built for different resolutions that happen to share the same
// event.
package caching

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/coreroom/stateres/powerlevels"
	"github.com/coreroom/stateres/spec"
)

// DefaultMaxCost is the default ristretto cost budget. Set costs every view
// at 1, so this is a budget of 32<<20 (33,554,432) views, not of bytes.
const DefaultMaxCost = 32 << 20

// PowerLevelsCache caches *powerlevels.View by the event id of the
// m.room.power_levels event it was built from.
type PowerLevelsCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewPowerLevelsCache constructs a cache with the given cost budget and
// per-entry TTL.
func NewPowerLevelsCache(maxCost int64, ttl time.Duration) (*PowerLevelsCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &PowerLevelsCache{cache: c, ttl: ttl}, nil
}

// Get returns the cached view for eventID, if present and not expired.
func (c *PowerLevelsCache) Get(eventID spec.EventID) (*powerlevels.View, bool) {
	v, ok := c.cache.Get(string(eventID))
	if !ok {
		return nil, false
	}
	view, ok := v.(*powerlevels.View)
	return view, ok
}

// Set stores view under eventID, costed at 1 (views are small and roughly
// uniform in size; ristretto's admission policy still applies).
func (c *PowerLevelsCache) Set(eventID spec.EventID, view *powerlevels.View) {
	c.cache.SetWithTTL(string(eventID), view, 1, c.ttl)
}

// Close releases the cache's background goroutines.
func (c *PowerLevelsCache) Close() {
	c.cache.Close()
}
