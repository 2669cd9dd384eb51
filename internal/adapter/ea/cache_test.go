package ea

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

// countingProvider counts calls per method and can be told to fail.
type countingProvider struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func newCountingProvider() *countingProvider {
	return &countingProvider{calls: map[string]int{}}
}

func (p *countingProvider) count(method string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[method]++
	if p.fail {
		return errors.New("provider down")
	}
	return nil
}

func (p *countingProvider) callCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *countingProvider) HydrologyStations(context.Context) ([]domain.CatalogItem, error) {
	if err := p.count("hydrology"); err != nil {
		return nil, err
	}
	return []domain.CatalogItem{{StationReference: "ABC1"}}, nil
}

func (p *countingProvider) GroundwaterStations(context.Context) ([]domain.CatalogItem, error) {
	if err := p.count("gw-stations"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *countingProvider) GroundwaterMeasures(context.Context) ([]domain.MeasureItem, error) {
	if err := p.count("gw-measures"); err != nil {
		return nil, err
	}
	return []domain.MeasureItem{{ID: "http://example/m1"}}, nil
}

func (p *countingProvider) GroundwaterSnapshot(_ context.Context, date time.Time) ([]SnapshotReading, error) {
	if err := p.count("snapshot|" + date.Format("2006-01-02")); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *countingProvider) GroundwaterToday(context.Context) ([]SnapshotReading, error) {
	if err := p.count("today"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *countingProvider) RainfallStations(context.Context) ([]domain.CatalogItem, error) {
	if err := p.count("rain-stations"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *countingProvider) RainfallMeasures(context.Context) ([]domain.MeasureItem, error) {
	if err := p.count("rain-measures"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (p *countingProvider) MeasureReadings(_ context.Context, measureURL string, _ time.Time) ([]TimedReading, error) {
	if err := p.count("readings|" + measureURL); err != nil {
		return nil, err
	}
	return []TimedReading{{Value: 0.2}}, nil
}

func newCachedForTest() (*CachedClient, *countingProvider, *clockwork.FakeClock) {
	inner := newCountingProvider()
	clock := clockwork.NewFakeClock()
	return NewCachedClient(inner, DefaultTTLs(), clock), inner, clock
}

func TestCachedClient_HitWithinTTL(t *testing.T) {
	cached, inner, _ := newCachedForTest()

	first, err := cached.HydrologyStations(context.Background())
	require.NoError(t, err)
	second, err := cached.HydrologyStations(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.callCount("hydrology"), "second call must be served from cache")
}

func TestCachedClient_ExpiryPerDataClass(t *testing.T) {
	cached, inner, clock := newCachedForTest()
	ctx := context.Background()

	_, err := cached.HydrologyStations(ctx)
	require.NoError(t, err)
	_, err = cached.GroundwaterMeasures(ctx)
	require.NoError(t, err)

	// Eleven minutes: past the readings TTL, well inside the metadata TTL.
	clock.Advance(11 * time.Minute)

	_, err = cached.HydrologyStations(ctx)
	require.NoError(t, err)
	_, err = cached.GroundwaterMeasures(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.callCount("hydrology"), "metadata still cached")
	assert.Equal(t, 2, inner.callCount("gw-measures"), "readings refreshed after TTL")

	clock.Advance(25 * time.Hour)
	_, err = cached.HydrologyStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount("hydrology"), "metadata refreshed after 24h")
}

func TestCachedClient_ErrorsAreNotCached(t *testing.T) {
	cached, inner, _ := newCachedForTest()
	ctx := context.Background()

	inner.fail = true
	_, err := cached.RainfallStations(ctx)
	require.Error(t, err)

	// The failed fetch must not poison the entry: a retry inside the TTL
	// window reaches the provider again and succeeds.
	inner.fail = false
	_, err = cached.RainfallStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount("rain-stations"))
}

func TestCachedClient_KeyedByArguments(t *testing.T) {
	cached, inner, _ := newCachedForTest()
	ctx := context.Background()

	d1 := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)

	_, err := cached.GroundwaterSnapshot(ctx, d1)
	require.NoError(t, err)
	_, err = cached.GroundwaterSnapshot(ctx, d2)
	require.NoError(t, err)
	_, err = cached.GroundwaterSnapshot(ctx, d1)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.callCount("snapshot|2026-08-23"))
	assert.Equal(t, 1, inner.callCount("snapshot|2026-08-16"))

	since := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	_, err = cached.MeasureReadings(ctx, "http://example/m1", since)
	require.NoError(t, err)
	_, err = cached.MeasureReadings(ctx, "http://example/m2", since)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.callCount("readings|http://example/m1"))
	assert.Equal(t, 1, inner.callCount("readings|http://example/m2"))
}

func TestCachedClient_Purge(t *testing.T) {
	cached, inner, _ := newCachedForTest()
	ctx := context.Background()

	_, err := cached.HydrologyStations(ctx)
	require.NoError(t, err)
	cached.Purge()
	_, err = cached.HydrologyStations(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.callCount("hydrology"), "purge forces a re-fetch")
}

func TestCachedClient_ConcurrentAccess(t *testing.T) {
	cached, _, _ := newCachedForTest()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.HydrologyStations(ctx)
			assert.NoError(t, err)
			_, err = cached.GroundwaterMeasures(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
