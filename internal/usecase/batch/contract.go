package batch

import (
	"context"

	dombatch "github.com/kailas-cloud/geodex/internal/domain/batch"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domimg "github.com/kailas-cloud/geodex/internal/domain/image"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
)

// ImageIndexer stores image documents.
type ImageIndexer interface {
	Index(ctx context.Context, imgs []domimg.Metadata) ([]dombatch.Result, error)
}

// CollectionReader reads collections for existence checks.
type CollectionReader interface {
	Get(ctx context.Context, id string) (domcol.Collection, error)
}

// SiteDetector attributes points to field sites.
type SiteDetector interface {
	Detect(ctx context.Context, points []geo.Point) ([]domsite.Match, error)
}
