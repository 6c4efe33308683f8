package geo

import "fmt"

// BoundingBox is a viewport rectangle. Left may exceed Right when the box crosses the antimeridian.
type BoundingBox struct {
	top    float64
	left   float64
	bottom float64
	right  float64
}

// NewBoundingBox clamps each corner coordinate into range and returns the box.
// Out-of-range input is never an error; use Valid to detect an inverted box.
func NewBoundingBox(top, left, bottom, right float64) BoundingBox {
	return BoundingBox{
		top:    ClampLat(top),
		left:   ClampLon(left),
		bottom: ClampLat(bottom),
		right:  ClampLon(right),
	}
}

// BoundingBoxFromCorners builds a box from the top-left and bottom-right corners.
func BoundingBoxFromCorners(topLeft, bottomRight Point) BoundingBox {
	return NewBoundingBox(topLeft.Lat, topLeft.Lon, bottomRight.Lat, bottomRight.Lon)
}

// Top returns the northern edge.
func (b BoundingBox) Top() float64 { return b.top }

// Left returns the western edge.
func (b BoundingBox) Left() float64 { return b.left }

// Bottom returns the southern edge.
func (b BoundingBox) Bottom() float64 { return b.bottom }

// Right returns the eastern edge.
func (b BoundingBox) Right() float64 { return b.right }

// TopLeft returns the north-west corner.
func (b BoundingBox) TopLeft() Point { return Point{Lat: b.top, Lon: b.left} }

// BottomRight returns the south-east corner.
func (b BoundingBox) BottomRight() Point { return Point{Lat: b.bottom, Lon: b.right} }

// Valid reports whether the box has a non-negative latitude span.
func (b BoundingBox) Valid() bool { return b.top >= b.bottom }

// CrossesAntimeridian reports whether the box wraps past longitude 180.
func (b BoundingBox) CrossesAntimeridian() bool { return b.left > b.right }

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.bottom || p.Lat > b.top {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lon >= b.left || p.Lon <= b.right
	}
	return p.Lon >= b.left && p.Lon <= b.right
}

// Ring returns the box outline as a closed ring. Boxes crossing the antimeridian are not split.
func (b BoundingBox) Ring() Ring {
	return Ring{
		{Lat: b.top, Lon: b.left},
		{Lat: b.top, Lon: b.right},
		{Lat: b.bottom, Lon: b.right},
		{Lat: b.bottom, Lon: b.left},
		{Lat: b.top, Lon: b.left},
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g,%g %g,%g]", b.top, b.left, b.bottom, b.right)
}
