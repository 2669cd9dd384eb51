package pipeline

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

func parseCSV(t *testing.T, raw string) [][]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteGroundTruthCSV(t *testing.T) {
	rows := []GroundTruthRow{
		{
			StationID: "ABC1",
			Label:     "Thames Valley Borehole",
			Grouping:  "Chalk",
			Lat:       51.5,
			Lon:       -0.1,
			Value:     10.503,
			Trend:     domain.TrendRising,
			Delta:     0.003,
		},
		{
			StationID: "DEF2",
			Label:     "Midlands Borehole",
			Grouping:  domain.UnclassifiedGroup,
			Trend:     domain.TrendStable,
		},
	}

	var sb strings.Builder
	require.NoError(t, WriteGroundTruthCSV(&sb, rows))

	records := parseCSV(t, sb.String())
	require.Len(t, records, 3)
	assert.Equal(t, []string{"station_id", "label", "grouping", "lat", "lon", "value_m", "trend", "delta_m"}, records[0])
	assert.Equal(t, []string{"ABC1", "Thames Valley Borehole", "Chalk", "51.5", "-0.1", "10.503", "Rising", "0.003"}, records[1])
	assert.Equal(t, []string{"DEF2", "Midlands Borehole", "Unclassified Aquifer", "0", "0", "0", "Stable", "0"}, records[2])
}

func TestWriteGroundTruthCSV_Empty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteGroundTruthCSV(&sb, nil))

	records := parseCSV(t, sb.String())
	require.Len(t, records, 1, "header only")
}

func TestWriteResearchCSV(t *testing.T) {
	linked := ResearchRow{
		GroundTruthRow: GroundTruthRow{
			StationID: "ABC1",
			Label:     "Thames Valley Borehole",
			Grouping:  "Chalk",
			Lat:       51.5,
			Lon:       -0.1,
			Value:     10.503,
			Trend:     domain.TrendRising,
			Delta:     0.003,
		},
		Link:         &domain.GeoLink{RainRef: "RG1", RainLabel: "Hampstead Gauge", DistanceKM: 5.004},
		RainLatest:   fptr(12),
		RainBaseline: fptr(8),
		ETApplied:    fptr(6.825),
		ReffLatest:   fptr(5.175),
		ReffBaseline: fptr(1.175),
		ProxyTrend:   domain.TrendRising,
		ProxyMatch:   domain.MatchCorrect,
	}
	unlinked := ResearchRow{
		GroundTruthRow: GroundTruthRow{
			StationID: "GHI3",
			Label:     "Remote Fell Borehole",
			Grouping:  domain.UnclassifiedGroup,
			Lat:       54.5,
			Lon:       -3.0,
			Value:     2,
			Trend:     domain.TrendStable,
		},
		ProxyTrend: domain.TrendNotApplicable,
		ProxyMatch: domain.MatchNotApplicable,
	}

	var sb strings.Builder
	require.NoError(t, WriteResearchCSV(&sb, []ResearchRow{linked, unlinked}))

	records := parseCSV(t, sb.String())
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"station_id", "label", "grouping", "lat", "lon", "value_m", "trend", "delta_m",
		"rain_ref", "rain_label", "rain_dist_km",
		"rain_latest_mm", "rain_baseline_mm", "et_applied_mm",
		"reff_latest_mm", "reff_baseline_mm", "proxy_trend", "proxy_match",
	}, records[0])

	assert.Equal(t, []string{
		"ABC1", "Thames Valley Borehole", "Chalk", "51.5", "-0.1", "10.503", "Rising", "0.003",
		"RG1", "Hampstead Gauge", "5.004",
		"12", "8", "6.825", "5.175", "1.175", "Rising", "Correct",
	}, records[1])

	// Unlinked station: link and model cells stay empty, never zero.
	assert.Equal(t, []string{
		"GHI3", "Remote Fell Borehole", "Unclassified Aquifer", "54.5", "-3", "2", "Stable", "0",
		"", "", "",
		"", "", "", "", "", "N/A", "N/A",
	}, records[2])
}

func TestSelectRainMeasures(t *testing.T) {
	measures := []domain.MeasureItem{
		rainMeasure("RG1", "http://ex/generic", "Rainfall"),
		rainMeasure("RG1", "http://ex/total", "Rainfall Total"),
		rainMeasure("RG1", "http://ex/tb", "Tipping Bucket Raingauge"),
		rainMeasure("RG2", "http://ex/rg2-generic", "Rainfall"),
		rainMeasure("rg3", "http://ex/rg3", "Rainfall"), // lowercase ref in the feed
		rainMeasure("RG9", "http://ex/unwanted", "Rainfall"),
	}

	got := selectRainMeasures(measures, []string{"RG1", "RG2", "RG3", "RG4"})

	assert.Equal(t, map[string]string{
		"RG1": "http://ex/tb", // tipping bucket beats total beats generic
		"RG2": "http://ex/rg2-generic",
		"RG3": "http://ex/rg3",
	}, got, "unmatched refs are simply absent")
}

func TestSelectRainMeasures_OrderIndependentRanking(t *testing.T) {
	// Best measure listed first must not be displaced by later worse ones.
	measures := []domain.MeasureItem{
		rainMeasure("RG1", "http://ex/tb", "Tipping Bucket Raingauge"),
		rainMeasure("RG1", "http://ex/generic", "Rainfall"),
	}
	got := selectRainMeasures(measures, []string{"RG1"})
	assert.Equal(t, "http://ex/tb", got["RG1"])
}
