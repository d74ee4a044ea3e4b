package weather

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/khryptorgraphics/burnwise/pkg/types"
)

// cacheEntry holds one cached sample plus the last-known-good sample
// retained across provider failures, as spec.md §4.2 requires ("last
// successful sample may be returned marked reliability=low").
type cacheEntry struct {
	sample    types.WeatherSample
	fetchedAt time.Time
	lastGood  *types.WeatherSample
}

// inflight tracks a single-flight fetch in progress for one cache key.
type inflight struct {
	done   chan struct{}
	sample types.WeatherSample
	err    error
}

// Cache is a process-wide, TTL-bounded weather sample cache keyed by
// (lat, lon) rounded to 3 decimals, with at-most-once concurrent
// upstream fetch per key (spec.md §4.2, §5). There is no
// golang.org/x/sync/singleflight anywhere in the retrieved example
// pack, so the single-flight behavior is hand-rolled with one
// sync.Mutex guarding the maps and a per-key in-flight channel that
// waiters block on, in the style of the teacher's
// per-concern RWMutex fields (pkg/scheduler/intelligent_scheduler.go).
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	inflt   map[string]*inflight
	ttl     time.Duration
}

// NewCache builds a Cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		inflt:   make(map[string]*inflight),
		ttl:     ttl,
	}
}

// Key rounds loc to 3 decimal places, matching spec.md §3's cache key.
func Key(loc types.Point) string {
	round := func(x float64) float64 { return math.Round(x*1000) / 1000 }
	return fmt.Sprintf("%.3f,%.3f", round(loc.Lat), round(loc.Lon))
}

// Get fetches a fresh sample via fetch, reusing any cached value still
// within TTL and coalescing concurrent callers for the same key into
// one upstream call. On fetch failure, the last-known-good sample (if
// any) is returned marked reliability="low"; otherwise the error is
// returned.
func (c *Cache) Get(loc types.Point, fetch func() (types.WeatherSample, error)) (types.WeatherSample, error) {
	key := Key(loc)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Since(entry.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return entry.sample, nil
	}
	if flt, ok := c.inflt[key]; ok {
		c.mu.Unlock()
		<-flt.done
		if flt.err != nil {
			return c.fallback(key, flt.err)
		}
		return flt.sample, nil
	}

	flt := &inflight{done: make(chan struct{})}
	c.inflt[key] = flt
	c.mu.Unlock()

	sample, err := fetch()

	c.mu.Lock()
	delete(c.inflt, key)
	if err == nil {
		c.entries[key] = &cacheEntry{sample: sample, fetchedAt: time.Now(), lastGood: &sample}
	}
	// on error, the existing entry (and its lastGood) is left untouched
	c.mu.Unlock()

	flt.sample, flt.err = sample, err
	close(flt.done)

	if err != nil {
		return c.fallback(key, err)
	}
	return sample, nil
}

// fallback returns the last-known-good sample marked low-reliability,
// or propagates origErr if none exists.
func (c *Cache) fallback(key string, origErr error) (types.WeatherSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || entry.lastGood == nil {
		return types.WeatherSample{}, origErr
	}
	degraded := *entry.lastGood
	degraded.Reliability = "low"
	return degraded, nil
}
