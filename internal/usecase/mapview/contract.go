package mapview

import (
	"context"

	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/domain/site"
)

// BucketRepository aggregates images into geohash buckets.
type BucketRepository interface {
	Aggregate(ctx context.Context, req bucket.Request) ([]bucket.GeoBucket, error)
}

// SiteRepository finds the sites visible in a viewport.
type SiteRepository interface {
	Within(ctx context.Context, box geo.BoundingBox) ([]site.Site, error)
}

// ImageRepository fetches the display rows of a bucket's sample documents and
// exports the storage paths of a query's matches.
type ImageRepository interface {
	Lookup(ctx context.Context, ids []string, names image.CollectionNames) ([]image.Row, error)
	PathsMatching(ctx context.Context, q *query.Compiled) ([]string, error)
}
