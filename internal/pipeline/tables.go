package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

// GroundTruthRow is one active station's observed state: canonical
// identity, location, live level in metres, and classified trend.
type GroundTruthRow struct {
	StationID string            `json:"station_id"`
	Label     string            `json:"label"`
	Grouping  string            `json:"grouping"`
	Lat       float64           `json:"lat"`
	Lon       float64           `json:"lon"`
	Value     float64           `json:"value"`
	Trend     domain.TrendLabel `json:"trend"`
	Delta     float64           `json:"delta"`
}

// ResearchRow extends a ground-truth row with the recharge proxy model
// output. Pointer fields are nil when the station has no gauge link or the
// linked gauge returned no window data.
type ResearchRow struct {
	GroundTruthRow
	Link         *domain.GeoLink   `json:"link,omitempty"`
	RainLatest   *float64          `json:"rain_latest,omitempty"`
	RainBaseline *float64          `json:"rain_baseline,omitempty"`
	ETApplied    *float64          `json:"et_applied,omitempty"`
	ReffLatest   *float64          `json:"reff_latest,omitempty"`
	ReffBaseline *float64          `json:"reff_baseline,omitempty"`
	ProxyTrend   domain.TrendLabel `json:"proxy_trend"`
	ProxyMatch   domain.MatchLabel `json:"proxy_match"`
}

var groundTruthHeader = []string{
	"station_id", "label", "grouping", "lat", "lon", "value_m", "trend", "delta_m",
}

var researchHeader = append(append([]string{}, groundTruthHeader...),
	"rain_ref", "rain_label", "rain_dist_km",
	"rain_latest_mm", "rain_baseline_mm", "et_applied_mm",
	"reff_latest_mm", "reff_baseline_mm", "proxy_trend", "proxy_match",
)

// WriteGroundTruthCSV writes the table as flat UTF-8 CSV with a header row.
func WriteGroundTruthCSV(w io.Writer, rows []GroundTruthRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(groundTruthHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(groundTruthRecord(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResearchCSV writes the research table as flat UTF-8 CSV with a
// header row. Missing link and model fields render as empty cells.
func WriteResearchCSV(w io.Writer, rows []ResearchRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(researchHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := groundTruthRecord(r.GroundTruthRow)
		if r.Link != nil {
			rec = append(rec, r.Link.RainRef, r.Link.RainLabel, formatFloat(r.Link.DistanceKM))
		} else {
			rec = append(rec, "", "", "")
		}
		rec = append(rec,
			formatOptional(r.RainLatest),
			formatOptional(r.RainBaseline),
			formatOptional(r.ETApplied),
			formatOptional(r.ReffLatest),
			formatOptional(r.ReffBaseline),
			string(r.ProxyTrend),
			string(r.ProxyMatch),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func groundTruthRecord(r GroundTruthRow) []string {
	return []string{
		r.StationID,
		r.Label,
		r.Grouping,
		formatFloat(r.Lat),
		formatFloat(r.Lon),
		formatFloat(r.Value),
		string(r.Trend),
		formatFloat(r.Delta),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
