// Package site models the field sites images can be attributed to.
package site

import (
	"fmt"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

// Index field aliases for the site index.
const (
	FieldCode     = "code"
	FieldName     = "name"
	FieldType     = "type"
	FieldState    = "state"
	FieldDomain   = "domain"
	FieldBoundary = "boundary"
	FieldLat      = "lat"
	FieldLon      = "lon"
)

// Site is a field site with a boundary polygon (immutable value object).
type Site struct {
	code     string
	name     string
	siteType string
	state    string
	domain   string
	center   geo.Point
	boundary geo.Ring
}

// Details are the descriptive attributes of a site.
type Details struct {
	Name   string
	Type   string
	State  string
	Domain string
}

// New validates and creates a Site.
func New(code string, center geo.Point, boundary geo.Ring, d Details) (Site, error) {
	if code == "" {
		return Site{}, fmt.Errorf("site code is required")
	}
	if !center.Valid() {
		return Site{}, fmt.Errorf("site center %v out of range", center)
	}
	if !boundary.Encloses() {
		return Site{}, fmt.Errorf("site boundary needs at least %d points", geo.MinRingPoints)
	}
	return Site{
		code:     code,
		name:     d.Name,
		siteType: d.Type,
		state:    d.State,
		domain:   d.Domain,
		center:   center,
		boundary: boundary.Closed(),
	}, nil
}

// Code returns the site code.
func (s Site) Code() string { return s.code }

// Name returns the site name.
func (s Site) Name() string { return s.name }

// Type returns the site type.
func (s Site) Type() string { return s.siteType }

// State returns the state or province.
func (s Site) State() string { return s.state }

// Domain returns the ecological domain.
func (s Site) Domain() string { return s.domain }

// Center returns the pin position.
func (s Site) Center() geo.Point { return s.center }

// Boundary returns a copy of the closed boundary ring.
func (s Site) Boundary() geo.Ring { return append(geo.Ring(nil), s.boundary...) }

// Match is the detection outcome for one query point.
type Match struct {
	Code  string
	Found bool
}

// Shape selects how sites are drawn at a given zoom.
type Shape int

// Shapes.
const (
	ShapePin Shape = iota
	ShapePolygon
)

// ShapeForZoom draws boundaries once the map is zoomed past threshold, pins otherwise.
func ShapeForZoom(zoom, threshold float64) Shape {
	if zoom > threshold {
		return ShapePolygon
	}
	return ShapePin
}
