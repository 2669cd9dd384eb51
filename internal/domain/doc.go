// Package domain models UK groundwater and rainfall telemetry and the pure
// algorithms of the recharge proxy engine.
//
// # Data Sources
//
// Station metadata and readings come from two independent Environment Agency
// (EA) APIs: the Hydrology API (https://environment.data.gov.uk/hydrology)
// and the real-time Flood Monitoring API
// (https://environment.data.gov.uk/flood-monitoring). Both return JSON
// documents with a top-level "items" array, but their catalogs overlap and
// disagree on identifier fields.
//
// # Identifier Conventions
//
// A physical station may appear in either catalog under any of three
// identifier fields:
//
//	stationReference  →  EA operational reference, e.g. "TQ28_43"
//	wiskiID           →  WISKI archive identifier
//	notation          →  linked-data notation, often equal to one of the above
//
// The resolver coalesces these in that priority order and uppercases the
// result, so "abc1" from one catalog and "ABC1" from the other collapse to
// one station. Items carrying none of the three are unusable and dropped.
// See [ResolveStations].
//
// # Unit Conventions
//
// Groundwater levels arrive with a unitName of "m", "mAOD", "mASD", "mm" or
// "cm" depending on the measure. All values are normalized to metres before
// any comparison:
//
//	unit contains "mm" → factor 0.001
//	unit contains "cm" → factor 0.01
//	otherwise          → factor 1.0
//
// The factor chosen for a station's live reading is recorded on the
// [Reading] and reapplied verbatim to that station's baseline value, which
// the snapshot endpoint serves in raw units without repeating unitName.
//
// # Trend Classification
//
// A station's short-term trend compares its live level against a baseline
// level from an earlier snapshot. A dead band of 2 mm suppresses sensor
// noise: deltas inside ±threshold classify as Stable. See [ClassifyTrend].
//
// # Recharge Proxy
//
// Each groundwater station is linked to its nearest rainfall gauge within
// 15 km by great-circle distance (haversine, R = 6371.0 km). Rainfall is
// summed over two equal, adjacent, half-open windows lagged behind now to
// compensate for late gauge telemetry. Effective recharge per window is
//
//	reff = max(0, rain_sum − et_for_window)
//
// where et_for_window linearly prorates a monthly evapotranspiration figure.
// Comparing the two windows' reff yields a predicted trend, which is scored
// against the observed groundwater trend as Correct, Incorrect or N/A.
package domain
