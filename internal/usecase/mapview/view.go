package mapview

import (
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/site"
)

// MarkerView is a read-only copy of one marker.
type MarkerView struct {
	ID        int
	Cell      string
	Center    geo.Point
	Count     int64
	SampleIDs []string
	Selected  bool
}

// SiteView is a read-only copy of one drawn site.
type SiteView struct {
	Code     string
	Name     string
	Polygon  bool
	Center   geo.Point
	Boundary geo.Ring
}

// View is a point-in-time copy of a session.
type View struct {
	ID          string
	Viewport    Viewport
	HasViewport bool
	Depth       int
	Markers     []MarkerView
	Selected    int
	Rows        []image.Row
	Sites       []SiteView
	DrawOrder   []string
	Busy        bool
	Err         error
	Version     uint64
}

func (s *Session) viewLocked() View {
	v := View{
		ID:          s.id,
		Viewport:    s.viewport,
		HasViewport: s.hasViewport,
		Depth:       geo.DepthForZoom(s.viewport.Zoom),
		Markers:     make([]MarkerView, 0, s.recon.Len()),
		Selected:    s.recon.Selected(),
		Rows:        append([]image.Row(nil), s.rows...),
		Sites:       make([]SiteView, 0, len(s.siteNodes)),
		Busy:        s.busy(),
		Err:         s.lastErr,
		Version:     s.version,
	}
	for _, m := range s.recon.markers {
		v.Markers = append(v.Markers, MarkerView{
			ID:        m.id,
			Cell:      m.bucket.Cell(),
			Center:    m.position,
			Count:     m.bucket.Count(),
			SampleIDs: m.bucket.SampleIDs(),
			Selected:  m.selected,
		})
	}
	for _, n := range s.siteNodes {
		sv := SiteView{Code: n.Site.Code(), Name: n.Site.Name(), Center: n.Site.Center(), Polygon: n.Shape == site.ShapePolygon}
		if sv.Polygon {
			sv.Boundary = n.Site.Boundary()
		}
		v.Sites = append(v.Sites, sv)
	}
	for _, n := range s.comp.DrawList() {
		v.DrawOrder = append(v.DrawOrder, n.Kind())
	}
	return v
}
