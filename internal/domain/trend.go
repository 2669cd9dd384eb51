package domain

// TrendLabel is the three-way classification of a station's short-term
// level movement.
type TrendLabel string

const (
	TrendRising  TrendLabel = "Rising"
	TrendFalling TrendLabel = "Falling"
	TrendStable  TrendLabel = "Stable"

	// TrendNotApplicable marks proxy fields that could not be determined,
	// e.g. no rainfall data for the linked gauge. Ground-truth trends are
	// never N/A: a missing baseline classifies as Stable instead.
	TrendNotApplicable TrendLabel = "N/A"
)

// DefaultTrendThreshold is the dead band for groundwater level trends:
// 2 mm in metres, below which sensor noise would oscillate the label.
const DefaultTrendThreshold = 0.002

// TrendResult pairs a trend label with the signed delta that produced it.
type TrendResult struct {
	Label TrendLabel `json:"label"`
	Delta float64    `json:"delta"`
}

// ClassifyTrend compares a current value against a baseline in the same
// canonical unit. Deltas within ±threshold classify as Stable.
func ClassifyTrend(current, baseline, threshold float64) TrendResult {
	diff := current - baseline
	switch {
	case diff > threshold:
		return TrendResult{Label: TrendRising, Delta: diff}
	case diff < -threshold:
		return TrendResult{Label: TrendFalling, Delta: diff}
	default:
		return TrendResult{Label: TrendStable, Delta: diff}
	}
}

// BaselineValue is a raw historical value keyed by measure URL, as served
// by the snapshot endpoint. Raw means pre-conversion: callers must apply
// the conversion factor recorded on the station's live Reading.
type BaselineValue struct {
	MeasureURL string
	RawValue   float64
}

// ClassifyAgainstBaselines classifies each reading against its baseline,
// looked up by measure URL. The baseline's raw value is scaled by the
// reading's own stored conversion factor, never a freshly inferred one.
// Readings without a baseline default to Stable with zero delta.
func ClassifyAgainstBaselines(readings []Reading, baselines map[string]float64, threshold float64) map[string]TrendResult {
	out := make(map[string]TrendResult, len(readings))
	for _, r := range readings {
		raw, ok := baselines[r.MeasureURL]
		if !ok {
			out[r.StationID] = TrendResult{Label: TrendStable}
			continue
		}
		out[r.StationID] = ClassifyTrend(r.Value, raw*r.ConversionFactor, threshold)
	}
	return out
}
