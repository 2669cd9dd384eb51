package domain

import "math"

// earthRadiusKM is the spherical-earth radius used throughout. Real geodesy
// is out of scope; at gauge-linking distances the error is negligible.
const earthRadiusKM = 6371.0

// DefaultMaxLinkKM is the default search radius when linking a groundwater
// station to its nearest rainfall gauge.
const DefaultMaxLinkKM = 15.0

// GeoLink associates a groundwater station with its nearest rainfall gauge.
// Absence of a link (no gauge within radius) is represented by a nil
// pointer, never a zero-distance value.
type GeoLink struct {
	RainRef    string  `json:"rain_ref"`
	RainLabel  string  `json:"rain_label"`
	DistanceKM float64 `json:"distance_km"`
}

// Haversine returns the great-circle distance in kilometres between two
// latitude/longitude points in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NearestRain scans every rainfall station and returns a link to the
// closest one, or nil when none lies within maxKM. Ties keep the first
// station reaching the minimum (strict less-than during the scan). The
// scan is a brute-force O(R) pass, fine at national station counts.
func NearestRain(gw Station, rain []Station, maxKM float64) *GeoLink {
	minDist := math.Inf(1)
	var best *Station
	for i := range rain {
		d := Haversine(gw.Lat, gw.Lon, rain[i].Lat, rain[i].Lon)
		if d < minDist {
			minDist = d
			best = &rain[i]
		}
	}
	if best == nil || minDist > maxKM {
		return nil
	}
	return &GeoLink{RainRef: best.ID, RainLabel: best.Label, DistanceKM: minDist}
}
