package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

// aggregateRainfall sums each gauge's readings into the latest and baseline
// comparison windows. One history request per gauge, fanned out over a
// bounded worker pool; a failing gauge is dropped from the result, never
// failing the batch. Gauges absent from the returned map have no data,
// which is distinct from a zero-sum observation.
func (e *Engine) aggregateRainfall(ctx context.Context, refs []string, windowDays int) map[string]domain.WindowAggregate {
	if len(refs) == 0 {
		return nil
	}

	measures, err := e.provider.RainfallMeasures(ctx)
	if err != nil {
		e.logger.Warn("rainfall measures fetch failed", "error", err)
		e.metrics.FeedErrors.WithLabelValues("rainfall-measures").Inc()
		return nil
	}
	refToMeasure := selectRainMeasures(measures, refs)
	if len(refToMeasure) == 0 {
		return nil
	}

	fences := domain.FenceWindows(windowDays, e.settings.WindowLagDays)

	type job struct {
		ref        string
		measureURL string
	}
	jobs := make(chan job)
	var (
		mu  sync.Mutex
		out = make(map[string]domain.WindowAggregate, len(refToMeasure))
		wg  sync.WaitGroup
	)

	// At least one worker must drain jobs or the sends below block forever.
	workers := e.settings.Workers
	if workers > len(refToMeasure) {
		workers = len(refToMeasure)
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				agg, ok := e.sumWindows(ctx, j.measureURL, fences)
				if !ok {
					continue
				}
				mu.Lock()
				out[j.ref] = agg
				mu.Unlock()
			}
		}()
	}

	for ref, measureURL := range refToMeasure {
		jobs <- job{ref: ref, measureURL: measureURL}
	}
	close(jobs)
	wg.Wait()

	e.logger.Info("rainfall aggregation complete",
		"window_days", windowDays,
		"gauges_requested", len(refs),
		"gauges_covered", len(out),
	)
	return out
}

// sumWindows fetches one gauge's history since the oldest fence and buckets
// each reading client-side. Returns ok=false when the fetch fails or no
// reading falls inside either window.
func (e *Engine) sumWindows(ctx context.Context, measureURL string, fences domain.WindowFences) (domain.WindowAggregate, bool) {
	readings, err := e.provider.MeasureReadings(ctx, measureURL, fences.HistCutoff)
	if err != nil {
		e.logger.Warn("gauge history fetch failed", "measure", measureURL, "error", err)
		e.metrics.GaugeFetchErrors.Inc()
		return domain.WindowAggregate{}, false
	}

	var agg domain.WindowAggregate
	counted := 0
	for _, r := range readings {
		latest, in := fences.Bucket(r.DateTime)
		if !in {
			continue
		}
		counted++
		if latest {
			agg.LatestSum += r.Value
		} else {
			agg.BaselineSum += r.Value
		}
	}
	return agg, counted > 0
}

// selectRainMeasures picks the best rainfall measure per requested gauge.
// Tipping-bucket sensors are high-fidelity cumulative counters, so they
// outrank "total" labelled measures, which outrank any other rainfall
// measure.
func selectRainMeasures(measures []domain.MeasureItem, refs []string) map[string]string {
	wanted := make(map[string]bool, len(refs))
	for _, r := range refs {
		wanted[strings.ToUpper(r)] = true
	}

	best := make(map[string]string, len(refs))
	rank := make(map[string]int, len(refs))
	for _, m := range measures {
		ref := m.StationRef()
		if ref == "" || !wanted[ref] || m.ID == "" {
			continue
		}
		r := measureRank(m)
		if cur, ok := rank[ref]; !ok || r > cur {
			best[ref] = m.ID
			rank[ref] = r
		}
	}
	return best
}

func measureRank(m domain.MeasureItem) int {
	label := strings.ToLower(m.Label + " " + m.ParameterName)
	switch {
	case strings.Contains(label, "tipping bucket"):
		return 3
	case strings.Contains(label, "total"):
		return 2
	default:
		return 1
	}
}
