package site

import (
	"testing"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

func TestNew(t *testing.T) {
	ring := geo.Ring{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}
	s, err := New("NIWO", geo.Point{Lat: 0.5, Lon: 0.7}, ring, Details{Name: "Niwot Ridge"})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Boundary()) != 4 {
		t.Errorf("boundary should be closed, got %d points", len(s.Boundary()))
	}

	if _, err := New("", geo.Point{}, ring, Details{}); err == nil {
		t.Error("expected error for empty code")
	}
	if _, err := New("X", geo.Point{}, ring[:2], Details{}); err == nil {
		t.Error("expected error for degenerate boundary")
	}
}

func TestShapeForZoom(t *testing.T) {
	if ShapeForZoom(10, 10) != ShapePin {
		t.Error("zoom at threshold should draw pins")
	}
	if ShapeForZoom(10.5, 10) != ShapePolygon {
		t.Error("zoom above threshold should draw polygons")
	}
}
