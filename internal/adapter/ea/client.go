// Package ea talks to the Environment Agency Hydrology and Flood
// Monitoring APIs and provides the TTL cache that sits in front of them.
package ea

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aquiferwatch/recharge-engine/internal/domain"
)

// SnapshotReading is one historical reading row from the bulk readings
// endpoint, keyed by measure URL. Value stays raw: the caller owns unit
// conversion.
type SnapshotReading struct {
	Measure  string   `json:"measure"`
	Value    *float64 `json:"value"`
	DateTime string   `json:"dateTime"`
}

// UnmarshalJSON tolerates a garbled value field. The bulk endpoints
// occasionally serve one non-numeric value in a payload of thousands of
// rows; that row must decode with a nil Value, which consumers skip,
// instead of failing the whole feed.
func (s *SnapshotReading) UnmarshalJSON(data []byte) error {
	var raw struct {
		Measure  string          `json:"measure"`
		Value    json.RawMessage `json:"value"`
		DateTime string          `json:"dateTime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Measure = raw.Measure
	s.DateTime = raw.DateTime
	s.Value = looseFloat(raw.Value)
	return nil
}

// TimedReading is one reading from a single measure's history endpoint.
type TimedReading struct {
	Value    float64   `json:"value"`
	DateTime time.Time `json:"dateTime"`

	// invalid marks a row whose value did not parse. MeasureReadings
	// drops such rows before returning: a garbled value is excluded,
	// never summed as zero.
	invalid bool
}

func (t *TimedReading) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value    json.RawMessage `json:"value"`
		DateTime time.Time       `json:"dateTime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.DateTime = raw.DateTime
	if v := looseFloat(raw.Value); v != nil {
		t.Value = *v
	} else {
		t.invalid = true
	}
	return nil
}

// looseFloat parses a JSON value as a number, accepting quoted numbers
// and yielding nil for null, absent, or non-numeric content.
func looseFloat(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// Provider is the full fetch surface the pipeline consumes. CachedClient
// decorates it; tests fake it.
type Provider interface {
	HydrologyStations(ctx context.Context) ([]domain.CatalogItem, error)
	GroundwaterStations(ctx context.Context) ([]domain.CatalogItem, error)
	GroundwaterMeasures(ctx context.Context) ([]domain.MeasureItem, error)
	GroundwaterSnapshot(ctx context.Context, date time.Time) ([]SnapshotReading, error)
	GroundwaterToday(ctx context.Context) ([]SnapshotReading, error)
	RainfallStations(ctx context.Context) ([]domain.CatalogItem, error)
	RainfallMeasures(ctx context.Context) ([]domain.MeasureItem, error)
	MeasureReadings(ctx context.Context, measureURL string, since time.Time) ([]TimedReading, error)
}

// Timeouts carries the per-endpoint-class request deadlines. Bulk metadata
// endpoints serve thousands of rows and get the longest budget; the
// per-station history endpoint must stay short because the aggregator
// issues dozens of those concurrently.
type Timeouts struct {
	Metadata time.Duration
	Snapshot time.Duration
	Station  time.Duration
}

// Client implements Provider against the live EA APIs.
type Client struct {
	hydrologyBase string
	floodBase     string
	httpClient    *http.Client
	timeouts      Timeouts
	logger        *slog.Logger
}

// NewClient creates an EA API client. Base URLs are configurable so tests
// can point at a local fake.
func NewClient(hydrologyBase, floodBase string, timeouts Timeouts, logger *slog.Logger) *Client {
	return &Client{
		hydrologyBase: hydrologyBase,
		floodBase:     floodBase,
		httpClient:    &http.Client{},
		timeouts:      timeouts,
		logger:        logger,
	}
}

// HydrologyStations fetches the Hydrology API station catalog.
func (c *Client) HydrologyStations(ctx context.Context) ([]domain.CatalogItem, error) {
	return getItems[domain.CatalogItem](ctx, c, c.timeouts.Metadata,
		c.hydrologyBase+"/id/stations?_limit=10000")
}

// GroundwaterStations fetches the Flood Monitoring groundwater catalog.
func (c *Client) GroundwaterStations(ctx context.Context) ([]domain.CatalogItem, error) {
	return getItems[domain.CatalogItem](ctx, c, c.timeouts.Metadata,
		c.floodBase+"/id/stations?parameter=level&qualifier=Groundwater&_limit=5000")
}

// GroundwaterMeasures fetches groundwater level measures with their latest
// readings inline.
func (c *Client) GroundwaterMeasures(ctx context.Context) ([]domain.MeasureItem, error) {
	return getItems[domain.MeasureItem](ctx, c, c.timeouts.Metadata,
		c.floodBase+"/id/measures?parameter=level&qualifier=Groundwater&_limit=10000")
}

// GroundwaterSnapshot fetches all groundwater readings for one past date.
func (c *Client) GroundwaterSnapshot(ctx context.Context, date time.Time) ([]SnapshotReading, error) {
	u := fmt.Sprintf("%s/data/readings?date=%s&parameter=level&qualifier=Groundwater&_limit=10000",
		c.floodBase, date.UTC().Format("2006-01-02"))
	return getItems[SnapshotReading](ctx, c, c.timeouts.Snapshot, u)
}

// GroundwaterToday fetches today's groundwater readings, used as the
// baseline when the comparison window is zero days.
func (c *Client) GroundwaterToday(ctx context.Context) ([]SnapshotReading, error) {
	return getItems[SnapshotReading](ctx, c, c.timeouts.Snapshot,
		c.floodBase+"/data/readings?today&parameter=level&qualifier=Groundwater&_limit=10000")
}

// RainfallStations fetches the rainfall gauge catalog.
func (c *Client) RainfallStations(ctx context.Context) ([]domain.CatalogItem, error) {
	return getItems[domain.CatalogItem](ctx, c, c.timeouts.Metadata,
		c.floodBase+"/id/stations?parameter=rainfall&_limit=5000")
}

// RainfallMeasures fetches rainfall measures for ref-to-measure resolution.
func (c *Client) RainfallMeasures(ctx context.Context) ([]domain.MeasureItem, error) {
	return getItems[domain.MeasureItem](ctx, c, c.timeouts.Metadata,
		c.floodBase+"/id/measures?parameter=rainfall&_limit=10000")
}

// MeasureReadings fetches one measure's reading history since a date, in
// one request, sorted by the server.
func (c *Client) MeasureReadings(ctx context.Context, measureURL string, since time.Time) ([]TimedReading, error) {
	u := fmt.Sprintf("%s/readings?since=%s&_sorted&_limit=1000",
		measureURL, url.QueryEscape(since.UTC().Format("2006-01-02")))
	items, err := getItems[TimedReading](ctx, c, c.timeouts.Station, u)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, r := range items {
		if r.invalid {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// getItems performs a GET against an "items" document and decodes the array.
func getItems[T any](ctx context.Context, c *Client, timeout time.Duration, fullURL string) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ea request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ea API error: status %d", resp.StatusCode)
	}

	var doc struct {
		Items []T `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc.Items, nil
}
