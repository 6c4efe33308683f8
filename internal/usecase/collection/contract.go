package collection

import (
	"context"

	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
)

// Repository defines the storage contract for collections.
type Repository interface {
	Put(ctx context.Context, col domcol.Collection) (created bool, err error)
	Get(ctx context.Context, id string) (domcol.Collection, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Delete(ctx context.Context, id string) error
}

// ImageRemover deletes every image of a collection.
type ImageRemover interface {
	DeleteByCollection(ctx context.Context, collectionID string) (int, error)
}
