// Package geo holds the coordinate types shared by aggregation, filtering and site lookup.
package geo

import "math"

// Coordinate limits in degrees.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// Point is a WGS84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Clamped returns p with latitude and longitude clamped independently to their valid ranges.
func (p Point) Clamped() Point {
	return Point{Lat: ClampLat(p.Lat), Lon: ClampLon(p.Lon)}
}

// Valid reports whether p lies within the valid coordinate ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= MinLat && p.Lat <= MaxLat &&
		p.Lon >= MinLon && p.Lon <= MaxLon
}

// ClampLat clamps a latitude to [-90, 90].
func ClampLat(lat float64) float64 {
	return math.Max(MinLat, math.Min(MaxLat, lat))
}

// ClampLon clamps a longitude to [-180, 180].
func ClampLon(lon float64) float64 {
	return math.Max(MinLon, math.Min(MaxLon, lon))
}
