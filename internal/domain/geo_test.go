package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	t.Run("distance to self is zero", func(t *testing.T) {
		assert.Zero(t, Haversine(51.5, -0.1, 51.5, -0.1))
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := Haversine(51.5, -0.1, 52.5, -1.9)
		d2 := Haversine(52.5, -1.9, 51.5, -0.1)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		// πR/180 with R = 6371.0 gives 111.19 km per degree.
		assert.InDelta(t, 111.19, Haversine(51.0, -0.1, 52.0, -0.1), 0.01)
	})
}

func TestNearestRain(t *testing.T) {
	gw := Station{ID: "GW1", Lat: 51.50, Lon: -0.10}
	near := Station{ID: "RAIN5", Label: "Near Gauge", Lat: 51.545, Lon: -0.10}  // ~5 km north
	far := Station{ID: "RAIN20", Label: "Far Gauge", Lat: 51.680, Lon: -0.10}   // ~20 km north

	t.Run("links the in-radius gauge only", func(t *testing.T) {
		link := NearestRain(gw, []Station{far, near}, 15.0)
		require.NotNil(t, link)
		assert.Equal(t, "RAIN5", link.RainRef)
		assert.Equal(t, "Near Gauge", link.RainLabel)
		assert.InDelta(t, 5.0, link.DistanceKM, 0.1)
	})

	t.Run("no gauge within radius yields nil", func(t *testing.T) {
		assert.Nil(t, NearestRain(gw, []Station{far}, 15.0))
	})

	t.Run("empty candidate set yields nil", func(t *testing.T) {
		assert.Nil(t, NearestRain(gw, nil, 15.0))
	})

	t.Run("zero distance is a link, not an absence", func(t *testing.T) {
		colocated := Station{ID: "SAME", Lat: gw.Lat, Lon: gw.Lon}
		link := NearestRain(gw, []Station{colocated}, 15.0)
		require.NotNil(t, link)
		assert.Zero(t, link.DistanceKM)
	})

	t.Run("growing the radius never removes a link", func(t *testing.T) {
		candidates := []Station{near, far}
		var prev *GeoLink
		for _, maxKM := range []float64{1, 5.1, 15, 25, 100} {
			link := NearestRain(gw, candidates, maxKM)
			if prev != nil {
				require.NotNil(t, link, "radius %v dropped an existing link", maxKM)
				assert.Equal(t, prev.RainRef, link.RainRef)
			}
			if link != nil {
				prev = link
			}
		}
	})

	t.Run("tie keeps the first gauge at minimum distance", func(t *testing.T) {
		twinA := Station{ID: "TWIN_A", Lat: 51.545, Lon: -0.10}
		twinB := Station{ID: "TWIN_B", Lat: 51.545, Lon: -0.10}
		link := NearestRain(gw, []Station{twinA, twinB}, 15.0)
		require.NotNil(t, link)
		assert.Equal(t, "TWIN_A", link.RainRef)
	})
}
