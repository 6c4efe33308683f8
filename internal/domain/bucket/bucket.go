// Package bucket holds the result of a geohash aggregation.
package bucket

import (
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// GeoBucket is one geohash cell of matching documents (immutable value object).
type GeoBucket struct {
	cell    string
	center  geo.Point
	count   int64
	samples []string
}

// New creates a GeoBucket. The sample slice is copied.
func New(cell string, center geo.Point, count int64, samples []string) GeoBucket {
	return GeoBucket{
		cell:    cell,
		center:  center,
		count:   count,
		samples: append([]string(nil), samples...),
	}
}

// Cell returns the geohash prefix this bucket aggregates.
func (b GeoBucket) Cell() string { return b.cell }

// Center returns the centroid of the member documents.
func (b GeoBucket) Center() geo.Point { return b.center }

// Count returns the number of member documents.
func (b GeoBucket) Count() int64 { return b.count }

// SampleIDs returns a copy of the sampled document IDs.
func (b GeoBucket) SampleIDs() []string { return append([]string(nil), b.samples...) }

// SampleLen returns the number of sampled IDs without copying.
func (b GeoBucket) SampleLen() int { return len(b.samples) }

// Total sums the document counts of buckets.
func Total(buckets []GeoBucket) int64 {
	var n int64
	for i := range buckets {
		n += buckets[i].count
	}
	return n
}

// Request describes one viewport aggregation.
type Request struct {
	Viewport   geo.BoundingBox
	Zoom       float64
	Query      *query.Compiled
	MaxSamples int
}
