package domain

import (
	"strings"
	"time"
)

// Reading is one live measurement for a station, value already in metres.
// ConversionFactor is kept so the same factor can be reapplied to baseline
// values, which arrive in raw units.
type Reading struct {
	StationID        string    `json:"station_id"`
	MeasureURL       string    `json:"measure_url"`
	Value            float64   `json:"value"`
	RawValue         float64   `json:"raw_value"`
	ConversionFactor float64   `json:"conversion_factor"`
	Unit             string    `json:"unit"`
	Time             time.Time `json:"time"`
}

// MeasureItem is one raw measure record from the Flood Monitoring API,
// carrying its latest reading inline.
type MeasureItem struct {
	ID               string `json:"@id"`
	StationReference string `json:"stationReference"`
	Station          string `json:"station"`
	Label            string `json:"label"`
	ParameterName    string `json:"parameterName"`
	UnitName         string `json:"unitName"`
	LatestReading    *struct {
		Value    *float64 `json:"value"`
		DateTime string   `json:"dateTime"`
	} `json:"latestReading"`
}

// ConversionFactor maps a raw unit name to the factor that converts its
// values to metres. Matching is a case-insensitive substring check because
// the APIs mix spellings ("mm", "Millimetres", "mASD").
func ConversionFactor(unit string) float64 {
	u := strings.ToLower(unit)
	switch {
	case strings.Contains(u, "mm"):
		return 0.001
	case strings.Contains(u, "cm"):
		return 0.01
	default:
		return 1.0
	}
}

// StationRef extracts the canonical station reference for a measure item,
// falling back to the last path segment of the station URL.
func (m MeasureItem) StationRef() string {
	if ref := strings.TrimSpace(m.StationReference); ref != "" {
		return strings.ToUpper(ref)
	}
	if m.Station == "" {
		return ""
	}
	parts := strings.Split(m.Station, "/")
	return strings.ToUpper(parts[len(parts)-1])
}

// IngestReadings converts live measure items into one Reading per station,
// normalized to metres. Items without a latest value are skipped; duplicate
// station references keep the first occurrence, so output is deterministic
// for identical input order.
func IngestReadings(items []MeasureItem) []Reading {
	seen := make(map[string]bool, len(items))
	out := make([]Reading, 0, len(items))

	for _, it := range items {
		if it.LatestReading == nil || it.LatestReading.Value == nil {
			continue
		}
		ref := it.StationRef()
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		factor := ConversionFactor(it.UnitName)
		ts, _ := time.Parse(time.RFC3339, it.LatestReading.DateTime)
		out = append(out, Reading{
			StationID:        ref,
			MeasureURL:       it.ID,
			Value:            *it.LatestReading.Value * factor,
			RawValue:         *it.LatestReading.Value,
			ConversionFactor: factor,
			Unit:             it.UnitName,
			Time:             ts,
		})
	}
	return out
}
