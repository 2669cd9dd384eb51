package domain

import "time"

// DefaultWindowLagDays is the fixed offset subtracted from now before the
// aggregation windows are fenced. Rain gauge telemetry is not guaranteed
// complete at now, so an unlagged latest bucket would be systematically
// under-counted.
const DefaultWindowLagDays = 1

// MatchLabel scores a proxy prediction against the observed trend.
type MatchLabel string

const (
	MatchCorrect       MatchLabel = "Correct"
	MatchIncorrect     MatchLabel = "Incorrect"
	MatchNotApplicable MatchLabel = "N/A"
)

// WindowAggregate holds rainfall sums for the two comparison windows of a
// single gauge. A zero sum is a valid observation; "no data at all" is
// represented by the gauge being absent from the aggregate map entirely.
type WindowAggregate struct {
	LatestSum   float64 `json:"latest_sum"`
	BaselineSum float64 `json:"baseline_sum"`
}

// WindowFences are the half-open time boundaries of the two aggregation
// windows, earliest first:
//
//	[HistCutoff, MidCutoff)   → baseline window
//	[MidCutoff, LatestCutoff) → latest window
type WindowFences struct {
	HistCutoff   time.Time
	MidCutoff    time.Time
	LatestCutoff time.Time
}

// FenceWindows derives the window boundaries for a comparison window of
// windowDays and a telemetry lag of lagDays, relative to the package clock.
func FenceWindows(windowDays, lagDays int) WindowFences {
	w := time.Duration(windowDays) * 24 * time.Hour
	latest := clock.Now().UTC().Add(-time.Duration(lagDays) * 24 * time.Hour)
	return WindowFences{
		HistCutoff:   latest.Add(-2 * w),
		MidCutoff:    latest.Add(-w),
		LatestCutoff: latest,
	}
}

// Bucket assigns a reading timestamp to exactly one window using half-open
// membership, so a reading at a boundary is never counted twice. Returns
// (latest, counted): counted is false for timestamps outside both fences.
func (f WindowFences) Bucket(t time.Time) (latest, counted bool) {
	switch {
	case !t.Before(f.MidCutoff) && t.Before(f.LatestCutoff):
		return true, true
	case !t.Before(f.HistCutoff) && t.Before(f.MidCutoff):
		return false, true
	default:
		return false, false
	}
}

// RechargeEstimate is the proxy model output for one linked station.
type RechargeEstimate struct {
	ReffLatest   float64    `json:"reff_latest"`
	ReffBaseline float64    `json:"reff_baseline"`
	ETApplied    float64    `json:"et_applied"`
	ProxyTrend   TrendLabel `json:"proxy_trend"`
}

// ComputeRecharge derives effective recharge for both windows and the
// resulting proxy trend. etMonthly is the evapotranspiration figure in
// mm/month for the station and current calendar month; it is linearly
// prorated to the window length (a modeling simplification, not a
// calendar-aware average).
func ComputeRecharge(agg WindowAggregate, etMonthly float64, windowDays int) RechargeEstimate {
	etWindow := etMonthly / 30 * float64(windowDays)
	reffLatest := max(0, agg.LatestSum-etWindow)
	reffBaseline := max(0, agg.BaselineSum-etWindow)

	trend := TrendStable
	switch {
	case reffLatest > reffBaseline:
		trend = TrendRising
	case reffLatest < reffBaseline:
		trend = TrendFalling
	}
	return RechargeEstimate{
		ReffLatest:   reffLatest,
		ReffBaseline: reffBaseline,
		ETApplied:    etWindow,
		ProxyTrend:   trend,
	}
}

// ScoreAccuracy compares a proxy trend against the observed ground truth.
// Either side being undetermined yields N/A, never a silent mismatch.
func ScoreAccuracy(proxy, truth TrendLabel) MatchLabel {
	if proxy == TrendNotApplicable || proxy == "" || truth == TrendNotApplicable || truth == "" {
		return MatchNotApplicable
	}
	if proxy == truth {
		return MatchCorrect
	}
	return MatchIncorrect
}
