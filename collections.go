package geodex

import (
	"context"
	"fmt"
	"time"

	collectionuc "github.com/kailas-cloud/geodex/internal/usecase/collection"
)

// CollectionService manages image collections.
type CollectionService struct {
	svc *collectionuc.Service
	obs *observer
}

// CollectionInfo describes a collection to create or update.
type CollectionInfo struct {
	Name         string
	Organization string
	Contact      string
	Description  string
}

// Put creates or replaces a collection. Returns true if it was created.
func (s *CollectionService) Put(ctx context.Context, id string, info CollectionInfo) (_ Collection, _ bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.put", start, err) }()

	col, created, err := s.svc.Put(ctx, id, info.Name, info.Organization, info.Contact, info.Description)
	if err != nil {
		return Collection{}, false, fmt.Errorf("put collection %q: %w", id, err)
	}
	return col, created, nil
}

// Get returns a collection by ID.
func (s *CollectionService) Get(ctx context.Context, id string) (_ Collection, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.get", start, err) }()

	col, err := s.svc.Get(ctx, id)
	if err != nil {
		return Collection{}, fmt.Errorf("get collection %q: %w", id, err)
	}
	return col, nil
}

// List returns all collections.
func (s *CollectionService) List(ctx context.Context) (_ []Collection, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.list", start, err) }()

	cols, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Delete removes a collection and every image in it. Returns the number of images removed.
func (s *CollectionService) Delete(ctx context.Context, id string) (_ int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.delete", start, err) }()

	n, err := s.svc.Delete(ctx, id)
	if err != nil {
		return n, fmt.Errorf("delete collection %q: %w", id, err)
	}
	return n, nil
}
