package geodex

import (
	"time"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/batch"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/domain/site"
	batchuc "github.com/kailas-cloud/geodex/internal/usecase/batch"
	"github.com/kailas-cloud/geodex/internal/usecase/mapview"
)

type (
	// Point is a WGS84 coordinate.
	Point = geo.Point
	// BoundingBox is a viewport rectangle. Left > Right crosses the antimeridian.
	BoundingBox = geo.BoundingBox
	// Bucket is one geohash cell of an aggregation.
	Bucket = bucket.GeoBucket
	// Row is the display row of one image.
	Row = image.Row
	// Image is one image to index.
	Image = batchuc.Item
	// Result is the per-item outcome of Index.
	Result = batch.Result
	// Collection groups images of one survey flight.
	Collection = collection.Collection
	// Site is a named research area with a boundary.
	Site = site.Site
	// SiteDetails are the descriptive attributes of a Site.
	SiteDetails = site.Details
	// SiteMatch is the detection outcome for one point.
	SiteMatch = site.Match
	// Condition is a filter on image fields.
	Condition = query.Condition
	// Entry is a condition with its ID and enabled flag, as held by a session.
	Entry = query.Entry
	// Session is a live map view.
	Session = mapview.Session
	// Viewport is the visible area and zoom level of a session.
	Viewport = mapview.Viewport
	// View is a snapshot of a session.
	View = mapview.View
)

// Errors callers can match with errors.Is.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrInvalidInput     = domain.ErrInvalidInput
	ErrInvalidGeometry  = domain.ErrInvalidGeometry
	ErrInvalidCondition = domain.ErrInvalidCondition
	ErrSessionNotFound  = domain.ErrSessionNotFound
	ErrBatchTooLarge    = domain.ErrBatchTooLarge
)

// NewBoundingBox creates a viewport from its edges in degrees.
func NewBoundingBox(top, left, bottom, right float64) BoundingBox {
	return geo.NewBoundingBox(top, left, bottom, right)
}

// NewSite validates and creates a site.
func NewSite(code string, center Point, boundary []Point, d SiteDetails) (Site, error) {
	return site.New(code, center, geo.Ring(boundary), d)
}

// Term matches images whose field equals any of values.
func Term(field string, values ...string) (Condition, error) {
	c, err := query.NewTerm(field, values...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Between matches images whose numeric field lies in [lo, hi].
func Between(field string, lo, hi float64) (Condition, error) {
	c, err := query.NewRange(field, query.Between(lo, hi))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Within matches images positioned inside the polygon.
func Within(points ...Point) (Condition, error) {
	c, err := query.NewPolygon(image.FieldPosition, points...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TakenBetween matches images captured in [from, to].
func TakenBetween(from, to time.Time) (Condition, error) {
	c, err := query.NewDateInterval(image.FieldTakenAt, from, to)
	if err != nil {
		return nil, err
	}
	return c, nil
}
