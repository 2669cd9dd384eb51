// Package pipeline orchestrates the ground-truth and research table builds.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aquiferwatch/recharge-engine/internal/adapter/ea"
	"github.com/aquiferwatch/recharge-engine/internal/domain"
	"github.com/aquiferwatch/recharge-engine/internal/et"
	"github.com/aquiferwatch/recharge-engine/internal/observability"
)

// Purger forces a full re-fetch of all cached provider data.
type Purger interface {
	Purge()
}

// Settings are the model parameters the engine runs with.
type Settings struct {
	TrendThreshold float64
	MaxLinkKM      float64
	WindowDays     int
	WindowLagDays  int
	Workers        int
}

// RunOptions select the comparison window for one computation. An explicit
// options value replaces any ambient session state: callers own the window
// choice and the force-refresh decision.
type RunOptions struct {
	// WindowDays is the comparison window size. Zero compares against the
	// earliest reading of the current day instead of a past snapshot.
	WindowDays int
	// ForceRefresh purges the provider cache before computing.
	ForceRefresh bool
}

// Engine runs the reconciliation, linking, and recharge-proxy pipelines.
type Engine struct {
	provider ea.Provider
	purger   Purger
	etTable  *et.Table
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates an Engine. purger may be nil when the provider is uncached.
func New(provider ea.Provider, purger Purger, etTable *et.Table, settings Settings, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		provider: provider,
		purger:   purger,
		etTable:  etTable,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once at least one refresh cycle has produced
// a non-empty ground-truth table.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not completed a refresh cycle yet")
	}
	return nil
}

// Refresh runs one full ground-truth plus research cycle, tagged with a
// cycle id for log correlation. Used by the background loop and the
// explicit refresh action.
func (e *Engine) Refresh(ctx context.Context, opts RunOptions) {
	cycleID := uuid.NewString()
	logger := e.logger.With("cycle_id", cycleID)
	start := time.Now()

	logger.Info("refresh cycle starting", "window_days", opts.WindowDays, "force", opts.ForceRefresh)

	rows := e.Research(ctx, opts)

	e.metrics.RefreshCycles.Inc()
	e.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if len(rows) > 0 {
		e.ready.Store(true)
		e.metrics.EngineReady.Set(1)
	}
	logger.Info("refresh cycle complete", "rows", len(rows), "elapsed", time.Since(start))
}

// GroundTruth builds the observed-trend table: one row per active
// groundwater station with a live reading. Provider failures degrade to an
// empty contribution per feed; total unavailability yields an empty table,
// never an error.
func (e *Engine) GroundTruth(ctx context.Context, opts RunOptions) []GroundTruthRow {
	if opts.ForceRefresh && e.purger != nil {
		e.purger.Purge()
	}

	stations := e.resolveGroundwater(ctx)
	e.metrics.StationsResolved.Set(float64(len(stations)))
	if len(stations) == 0 {
		return nil
	}

	measures, err := e.provider.GroundwaterMeasures(ctx)
	if err != nil {
		e.logger.Warn("groundwater measures fetch failed", "error", err)
		e.metrics.FeedErrors.WithLabelValues("groundwater-measures").Inc()
		return nil
	}
	readings := domain.IngestReadings(measures)
	e.metrics.ActiveReadings.Set(float64(len(readings)))

	baselines := e.fetchBaselines(ctx, opts.WindowDays)
	trends := domain.ClassifyAgainstBaselines(readings, baselines, e.settings.TrendThreshold)

	byID := make(map[string]domain.Reading, len(readings))
	for _, r := range readings {
		byID[r.StationID] = r
	}

	rows := make([]GroundTruthRow, 0, len(stations))
	for _, st := range stations {
		if !st.Active {
			continue
		}
		r, ok := byID[st.ID]
		if !ok {
			continue
		}
		tr := trends[st.ID]
		rows = append(rows, GroundTruthRow{
			StationID: st.ID,
			Label:     st.Label,
			Grouping:  st.Grouping,
			Lat:       st.Lat,
			Lon:       st.Lon,
			Value:     r.Value,
			Trend:     tr.Label,
			Delta:     tr.Delta,
		})
	}
	return rows
}

// Research builds the proxy-model table: ground truth plus gauge link,
// window rainfall, recharge estimate, and accuracy tag per station.
// Stations without a link or without gauge data carry N/A sentinels.
func (e *Engine) Research(ctx context.Context, opts RunOptions) []ResearchRow {
	// The proxy model needs a real accumulation window, so a zero-day
	// (today-mode) selection falls back to the configured default.
	windowDays := opts.WindowDays
	if windowDays <= 0 {
		windowDays = e.settings.WindowDays
	}
	truth := e.GroundTruth(ctx, RunOptions{WindowDays: windowDays, ForceRefresh: opts.ForceRefresh})
	if len(truth) == 0 {
		return nil
	}

	rain := e.resolveRainfall(ctx)
	rows := make([]ResearchRow, len(truth))
	refs := make([]string, 0, len(truth))
	seen := make(map[string]bool)

	linked := 0
	for i, gt := range truth {
		rows[i] = ResearchRow{
			GroundTruthRow: gt,
			ProxyTrend:     domain.TrendNotApplicable,
			ProxyMatch:     domain.MatchNotApplicable,
		}
		link := domain.NearestRain(domain.Station{Lat: gt.Lat, Lon: gt.Lon}, rain, e.settings.MaxLinkKM)
		if link == nil {
			continue
		}
		rows[i].Link = link
		linked++
		if !seen[link.RainRef] {
			seen[link.RainRef] = true
			refs = append(refs, link.RainRef)
		}
	}
	e.metrics.StationsLinked.Set(float64(linked))
	if len(refs) == 0 {
		return rows
	}
	sort.Strings(refs)

	aggs := e.aggregateRainfall(ctx, refs, windowDays)
	e.metrics.RainCoverage.Set(float64(len(aggs)) / float64(len(refs)))

	fences := domain.FenceWindows(windowDays, e.settings.WindowLagDays)
	month := fences.LatestCutoff.Month()

	for i := range rows {
		if rows[i].Link == nil {
			continue
		}
		agg, ok := aggs[rows[i].Link.RainRef]
		if !ok {
			// Missing gauge data is not zero rainfall: keep the N/A sentinels.
			continue
		}
		est := domain.ComputeRecharge(agg, e.etTable.MonthlyET(rows[i].StationID, month), windowDays)
		rows[i].RainLatest = &agg.LatestSum
		rows[i].RainBaseline = &agg.BaselineSum
		rows[i].ETApplied = &est.ETApplied
		rows[i].ReffLatest = &est.ReffLatest
		rows[i].ReffBaseline = &est.ReffBaseline
		rows[i].ProxyTrend = est.ProxyTrend
		rows[i].ProxyMatch = domain.ScoreAccuracy(est.ProxyTrend, rows[i].Trend)
	}
	return rows
}

// resolveGroundwater merges the two station catalogs, degrading to an empty
// feed when either provider fails.
func (e *Engine) resolveGroundwater(ctx context.Context) []domain.Station {
	hydro, err := e.provider.HydrologyStations(ctx)
	if err != nil {
		e.logger.Warn("hydrology catalog fetch failed", "error", err)
		e.metrics.FeedErrors.WithLabelValues("hydrology-stations").Inc()
	}
	flood, err := e.provider.GroundwaterStations(ctx)
	if err != nil {
		e.logger.Warn("groundwater catalog fetch failed", "error", err)
		e.metrics.FeedErrors.WithLabelValues("groundwater-stations").Inc()
	}
	return domain.ResolveStations(domain.KindGroundwater,
		domain.StationFeed{Source: "hydrology", Items: hydro},
		domain.StationFeed{Source: "flood-monitoring", Items: flood},
	)
}

func (e *Engine) resolveRainfall(ctx context.Context) []domain.Station {
	items, err := e.provider.RainfallStations(ctx)
	if err != nil {
		e.logger.Warn("rainfall catalog fetch failed", "error", err)
		e.metrics.FeedErrors.WithLabelValues("rainfall-stations").Inc()
		return nil
	}
	return domain.ResolveStations(domain.KindRainfall,
		domain.StationFeed{Source: "flood-monitoring", Items: items})
}

// fetchBaselines returns the earliest raw value per measure for the
// comparison date: today's readings for a zero-day window, otherwise the
// snapshot windowDays ago. Failures degrade to no baselines, which
// classifies every trend as Stable.
func (e *Engine) fetchBaselines(ctx context.Context, windowDays int) map[string]float64 {
	var (
		items []ea.SnapshotReading
		err   error
	)
	if windowDays <= 0 {
		items, err = e.provider.GroundwaterToday(ctx)
	} else {
		items, err = e.provider.GroundwaterSnapshot(ctx, domain.Now().UTC().AddDate(0, 0, -windowDays))
	}
	if err != nil {
		e.logger.Warn("baseline snapshot fetch failed", "error", err, "window_days", windowDays)
		e.metrics.FeedErrors.WithLabelValues("groundwater-snapshot").Inc()
		return nil
	}
	return earliestPerMeasure(items)
}

// earliestPerMeasure keeps the earliest-timestamped value for each measure.
func earliestPerMeasure(items []ea.SnapshotReading) map[string]float64 {
	type pick struct {
		value float64
		at    string
	}
	picks := make(map[string]pick, len(items))
	for _, it := range items {
		if it.Measure == "" || it.Value == nil {
			continue
		}
		if prev, ok := picks[it.Measure]; !ok || it.DateTime < prev.at {
			picks[it.Measure] = pick{value: *it.Value, at: it.DateTime}
		}
	}
	out := make(map[string]float64, len(picks))
	for m, p := range picks {
		out[m] = p.value
	}
	return out
}
