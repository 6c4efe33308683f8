// Package aggregation buckets the images inside a viewport into geohash cells.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/metrics"
)

// Defaults applied when the caller leaves limits unset.
const (
	DefaultMaxCells   = 10000
	DefaultMaxSamples = 100
)

// store is the consumer interface for aggregation (ISP).
type store interface {
	AggregateGeo(ctx context.Context, q *db.GeoAggregateQuery) ([]db.GeoCell, error)
}

// Repo implements the geo aggregator.
type Repo struct {
	store    store
	index    string
	maxCells int
}

// New creates an aggregation repository over the image index.
func New(s store, index string, maxCells int) *Repo {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	return &Repo{store: s, index: index, maxCells: maxCells}
}

// Aggregate returns one bucket per non-empty geohash cell intersecting the viewport,
// at a precision derived from zoom. A viewport or filter geometry the backend cannot
// evaluate yields an empty list together with domain.ErrInvalidGeometry.
func (r *Repo) Aggregate(ctx context.Context, req bucket.Request) ([]bucket.GeoBucket, error) {
	if !req.Viewport.Valid() {
		metrics.AggregationErrorsTotal.WithLabelValues("invalid_geometry").Inc()
		return []bucket.GeoBucket{}, fmt.Errorf("viewport %s: %w", req.Viewport, domain.ErrInvalidGeometry)
	}
	samples := req.MaxSamples
	if samples < 0 {
		samples = 0
	}

	depth := geo.DepthForZoom(req.Zoom)
	q := &db.GeoAggregateQuery{
		IndexName: r.index,
		Query: req.Query.With(query.Box{
			LatField: image.FieldLat,
			LonField: image.FieldLon,
			Box:      req.Viewport,
		}),
		GeohashField: image.FieldGeohash,
		LatField:     image.FieldLat,
		LonField:     image.FieldLon,
		SampleField:  image.FieldID,
		Precision:    depth,
		SampleSize:   samples,
		MaxCells:     r.maxCells,
	}

	start := time.Now()
	cells, err := r.store.AggregateGeo(ctx, q)
	metrics.AggregationDuration.WithLabelValues(strconv.Itoa(depth)).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, db.ErrInvalidGeometry) {
			metrics.AggregationErrorsTotal.WithLabelValues("invalid_geometry").Inc()
			return []bucket.GeoBucket{}, fmt.Errorf("%w: %w", domain.ErrInvalidGeometry, err)
		}
		metrics.AggregationErrorsTotal.WithLabelValues("backend").Inc()
		return nil, fmt.Errorf("aggregate %s: %w", r.index, err)
	}

	buckets := make([]bucket.GeoBucket, 0, len(cells))
	for _, c := range cells {
		center := geo.Point{Lat: c.CenterLat, Lon: c.CenterLon}
		samples := c.Samples
		if len(samples) > q.SampleSize {
			samples = samples[:q.SampleSize]
		}
		buckets = append(buckets, bucket.New(c.Cell, center, c.Count, samples))
	}
	metrics.AggregationBuckets.Observe(float64(len(buckets)))
	return buckets, nil
}
