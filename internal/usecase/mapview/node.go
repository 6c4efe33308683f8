package mapview

import (
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/site"
)

// Node is anything placed in a session's compositor.
type Node interface {
	Kind() string
}

// Marker is a reusable on-screen handle showing one bucket.
type Marker struct {
	id       int
	position geo.Point
	bucket   bucket.GeoBucket
	selected bool
}

// Kind implements Node.
func (*Marker) Kind() string { return "marker" }

// ID returns the stable handle id.
func (m *Marker) ID() int { return m.id }

// Position returns where the marker is drawn.
func (m *Marker) Position() geo.Point { return m.position }

// Bucket returns the bucket currently shown.
func (m *Marker) Bucket() bucket.GeoBucket { return m.bucket }

// Selected reports whether the marker is the selected one.
func (m *Marker) Selected() bool { return m.selected }

// SiteNode draws a site as a pin or as its boundary.
type SiteNode struct {
	Site  site.Site
	Shape site.Shape
}

// Kind implements Node.
func (n *SiteNode) Kind() string {
	if n.Shape == site.ShapePolygon {
		return "site_boundary"
	}
	return "site_pin"
}

func (n *SiteNode) layer() Layer {
	if n.Shape == site.ShapePolygon {
		return LayerBoundaries
	}
	return LayerSitePins
}

// FilterPolygon outlines a polygon filter condition.
type FilterPolygon struct {
	EntryID string
	Ring    geo.Ring
}

// Kind implements Node.
func (*FilterPolygon) Kind() string { return "filter_polygon" }

// FilterVertex is a handle on one vertex of a polygon filter.
type FilterVertex struct {
	EntryID string
	Index   int
	Point   geo.Point
}

// Kind implements Node.
func (*FilterVertex) Kind() string { return "filter_vertex" }
