package site

import (
	"context"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
)

// Repository defines the storage contract for sites.
type Repository interface {
	Detect(ctx context.Context, points []geo.Point) ([]domsite.Match, error)
	List(ctx context.Context) ([]domsite.Site, error)
	Put(ctx context.Context, sites []domsite.Site) error
}
