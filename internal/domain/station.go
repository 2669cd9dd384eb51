package domain

import (
	"strings"
)

// StationKind distinguishes the two pipeline paths a station can take.
type StationKind string

const (
	KindGroundwater StationKind = "groundwater"
	KindRainfall    StationKind = "rainfall"
)

// Defaults applied when a catalog omits descriptive metadata.
const (
	UnknownStationLabel = "Unknown Station"
	UnknownRainLabel    = "Unknown Rain Gauge"
	UnclassifiedGroup   = "Unclassified Aquifer"
)

// identifierPriority is the coalesce order for catalog identifier fields.
// Reading feeds key on stationReference, so it wins when present.
var identifierPriority = []string{"stationReference", "wiskiID", "notation"}

// Station is one monitored physical location after identity resolution.
// Lat/Lon are always populated: records without both coordinates are
// dropped during resolution.
type Station struct {
	ID       string      `json:"id"`
	Lat      float64     `json:"lat"`
	Lon      float64     `json:"lon"`
	Label    string      `json:"label"`
	Grouping string      `json:"grouping"`
	Kind     StationKind `json:"kind"`
	Active   bool        `json:"active"`
}

// CatalogItem is one raw station record as served by a provider catalog.
// Field presence varies between the Hydrology and Flood Monitoring APIs,
// so everything is optional here and made structural in Station.
type CatalogItem struct {
	StationReference string  `json:"stationReference"`
	WiskiID          string  `json:"wiskiID"`
	Notation         string  `json:"notation"`
	Lat              *float64 `json:"lat"`
	Lon              *float64 `json:"long"`
	Label            string  `json:"label"`
	Aquifer          string  `json:"aquifer"`
	Status           string  `json:"status"`
}

// StationFeed is one catalog's contribution to identity resolution.
// Feeds are merged in slice order; earlier feeds win attribute conflicts.
type StationFeed struct {
	Source string
	Items  []CatalogItem
}

// CanonicalID coalesces the item's identifier fields in priority order and
// uppercases the first non-empty one. Returns "" when the item has none.
func CanonicalID(item CatalogItem) string {
	for _, field := range identifierPriority {
		var v string
		switch field {
		case "stationReference":
			v = item.StationReference
		case "wiskiID":
			v = item.WiskiID
		case "notation":
			v = item.Notation
		}
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToUpper(v)
		}
	}
	return ""
}

// ResolveStations merges station metadata from independent catalogs into one
// record per canonical identifier. Within a group, the first feed to supply
// a non-empty attribute wins (first-source-wins, not merge-all). Records
// ending up without both coordinates are discarded: geospatial consumers
// cannot use them.
func ResolveStations(kind StationKind, feeds ...StationFeed) []Station {
	type partial struct {
		station   Station
		hasLat    bool
		hasLon    bool
		hasLabel  bool
		hasGroup  bool
		hasStatus bool
	}

	byID := make(map[string]*partial)
	var order []string

	for _, feed := range feeds {
		for _, item := range feed.Items {
			id := CanonicalID(item)
			if id == "" {
				continue
			}
			p, seen := byID[id]
			if !seen {
				p = &partial{station: Station{ID: id, Kind: kind, Active: true}}
				byID[id] = p
				order = append(order, id)
			}
			if !p.hasLat && item.Lat != nil {
				p.station.Lat = *item.Lat
				p.hasLat = true
			}
			if !p.hasLon && item.Lon != nil {
				p.station.Lon = *item.Lon
				p.hasLon = true
			}
			if !p.hasLabel && strings.TrimSpace(item.Label) != "" {
				p.station.Label = item.Label
				p.hasLabel = true
			}
			if !p.hasGroup && strings.TrimSpace(item.Aquifer) != "" {
				p.station.Grouping = item.Aquifer
				p.hasGroup = true
			}
			if !p.hasStatus && strings.TrimSpace(item.Status) != "" {
				p.station.Active = strings.Contains(item.Status, "Active")
				p.hasStatus = true
			}
		}
	}

	out := make([]Station, 0, len(order))
	for _, id := range order {
		p := byID[id]
		if !p.hasLat || !p.hasLon {
			continue
		}
		if !p.hasLabel {
			p.station.Label = defaultLabel(kind)
		}
		if !p.hasGroup {
			p.station.Grouping = UnclassifiedGroup
		}
		out = append(out, p.station)
	}
	return out
}

func defaultLabel(kind StationKind) string {
	if kind == KindRainfall {
		return UnknownRainLabel
	}
	return UnknownStationLabel
}
