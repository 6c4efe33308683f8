package geo

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"github.com/twpayne/go-geom/xy"
)

// MinRingPoints is the number of distinct vertices needed to enclose an area.
const MinRingPoints = 3

// Ring is a polygon outline. It may be open or closed; Closed normalizes it.
type Ring []Point

// Distinct returns the vertex count ignoring a closing point equal to the first.
func (r Ring) Distinct() int {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	return n
}

// Encloses reports whether the ring has enough vertices to describe an area.
func (r Ring) Encloses() bool { return r.Distinct() >= MinRingPoints }

// Closed returns a copy of r whose last point equals its first.
func (r Ring) Closed() Ring {
	out := make(Ring, 0, len(r)+1)
	out = append(out, r...)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// Polygon converts the ring into a single-ring XY polygon (x = lon, y = lat).
func (r Ring) Polygon() (*geom.Polygon, error) {
	if !r.Encloses() {
		return nil, fmt.Errorf("ring has %d distinct points, need %d", r.Distinct(), MinRingPoints)
	}
	closed := r.Closed()
	coords := make([]geom.Coord, len(closed))
	for i, p := range closed {
		coords[i] = geom.Coord{p.Lon, p.Lat}
	}
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, fmt.Errorf("build polygon: %w", err)
	}
	return poly, nil
}

// WKT renders the ring as a POLYGON well-known-text string.
func (r Ring) WKT() (string, error) {
	poly, err := r.Polygon()
	if err != nil {
		return "", err
	}
	s, err := wkt.Marshal(poly)
	if err != nil {
		return "", fmt.Errorf("marshal polygon: %w", err)
	}
	return s, nil
}

// Contains reports whether p lies inside the ring or on its boundary.
func (r Ring) Contains(p Point) bool {
	if !r.Encloses() {
		return false
	}
	closed := r.Closed()
	flat := make([]float64, 0, 2*len(closed))
	for _, v := range closed {
		flat = append(flat, v.Lon, v.Lat)
	}
	return xy.IsPointInRing(geom.XY, geom.Coord{p.Lon, p.Lat}, flat)
}

// PointWKT renders p as a POINT well-known-text string.
func PointWKT(p Point) (string, error) {
	s, err := wkt.Marshal(geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}))
	if err != nil {
		return "", fmt.Errorf("marshal point: %w", err)
	}
	return s, nil
}

// ParseWKT decodes a POINT or single-ring POLYGON well-known-text string.
// For a point the returned ring has exactly one element.
func ParseWKT(s string) (Ring, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("unmarshal wkt: %w", err)
	}
	switch t := g.(type) {
	case *geom.Point:
		return Ring{{Lat: t.Y(), Lon: t.X()}}, nil
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil, fmt.Errorf("empty polygon")
		}
		coords := t.LinearRing(0).Coords()
		out := make(Ring, len(coords))
		for i, c := range coords {
			out[i] = Point{Lat: c.Y(), Lon: c.X()}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported geometry %T", g)
	}
}
