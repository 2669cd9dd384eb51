package ea

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

// TTLs holds the expiration horizon per data class. Station catalogs barely
// move, live readings churn every 15 minutes upstream, a past date's
// snapshot never changes, and per-station history sits in between.
type TTLs struct {
	Metadata time.Duration
	Readings time.Duration
	Snapshot time.Duration
	History  time.Duration
}

// DefaultTTLs mirrors the operational cache horizons: 24h for metadata and
// snapshots, 10 minutes for live readings, 1 hour for histories.
func DefaultTTLs() TTLs {
	return TTLs{
		Metadata: 24 * time.Hour,
		Readings: 10 * time.Minute,
		Snapshot: 24 * time.Hour,
		History:  time.Hour,
	}
}

// CachedClient decorates a Provider with process-wide TTL memoization keyed
// by call signature. Failed fetches are never cached, so a transient
// provider error stays retryable instead of poisoning an entry for the full
// TTL. The map is mutex-guarded; concurrent cold calls for one key may race
// to populate it, which is acceptable because fetches are idempotent.
type CachedClient struct {
	inner Provider
	ttls  TTLs
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// NewCachedClient creates a cache decorator around a provider. Pass a nil
// clock to use real time.
func NewCachedClient(inner Provider, ttls TTLs, clock clockwork.Clock) *CachedClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedClient{
		inner:   inner,
		ttls:    ttls,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Purge drops every cached entry, forcing full re-fetch on next access.
// Wired to the explicit user refresh action.
func (c *CachedClient) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *CachedClient) HydrologyStations(ctx context.Context) ([]domain.CatalogItem, error) {
	return fetchCached(ctx, c, "hydrology-stations", c.ttls.Metadata, c.inner.HydrologyStations)
}

func (c *CachedClient) GroundwaterStations(ctx context.Context) ([]domain.CatalogItem, error) {
	return fetchCached(ctx, c, "groundwater-stations", c.ttls.Metadata, c.inner.GroundwaterStations)
}

func (c *CachedClient) GroundwaterMeasures(ctx context.Context) ([]domain.MeasureItem, error) {
	return fetchCached(ctx, c, "groundwater-measures", c.ttls.Readings, c.inner.GroundwaterMeasures)
}

func (c *CachedClient) GroundwaterSnapshot(ctx context.Context, date time.Time) ([]SnapshotReading, error) {
	key := "groundwater-snapshot|" + date.UTC().Format("2006-01-02")
	return fetchCached(ctx, c, key, c.ttls.Snapshot, func(ctx context.Context) ([]SnapshotReading, error) {
		return c.inner.GroundwaterSnapshot(ctx, date)
	})
}

func (c *CachedClient) GroundwaterToday(ctx context.Context) ([]SnapshotReading, error) {
	return fetchCached(ctx, c, "groundwater-today", c.ttls.Readings, c.inner.GroundwaterToday)
}

func (c *CachedClient) RainfallStations(ctx context.Context) ([]domain.CatalogItem, error) {
	return fetchCached(ctx, c, "rainfall-stations", c.ttls.Metadata, c.inner.RainfallStations)
}

func (c *CachedClient) RainfallMeasures(ctx context.Context) ([]domain.MeasureItem, error) {
	return fetchCached(ctx, c, "rainfall-measures", c.ttls.Readings, c.inner.RainfallMeasures)
}

func (c *CachedClient) MeasureReadings(ctx context.Context, measureURL string, since time.Time) ([]TimedReading, error) {
	key := fmt.Sprintf("measure-readings|%s|%s", measureURL, since.UTC().Format("2006-01-02"))
	return fetchCached(ctx, c, key, c.ttls.History, func(ctx context.Context) ([]TimedReading, error) {
		return c.inner.MeasureReadings(ctx, measureURL, since)
	})
}

// fetchCached returns the live cache entry for key or refreshes it through
// fetch. Expired entries are refreshed transparently on access.
func fetchCached[T any](ctx context.Context, c *CachedClient, key string, ttl time.Duration, fetch func(context.Context) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.clock.Now().Before(e.expires) {
		v := e.value.([]T)
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: v, expires: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
	return v, nil
}
