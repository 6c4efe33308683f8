package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/domain"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
)

// Service handles collection CRUD and keeps the local name directory in step.
type Service struct {
	repo   Repository
	images ImageRemover
	dir    *domcol.Directory
	log    *zap.Logger
}

// New creates a collection service.
func New(repo Repository, images ImageRemover, dir *domcol.Directory, log *zap.Logger) *Service {
	return &Service{repo: repo, images: images, dir: dir, log: log}
}

// Directory returns the local ID to name lookup.
func (s *Service) Directory() *domcol.Directory { return s.dir }

// Put validates and stores a collection. Returns true if it was created.
func (s *Service) Put(ctx context.Context, id, name, organization, contact, description string) (domcol.Collection, bool, error) {
	col, err := domcol.New(id, name, organization, contact, description)
	if err != nil {
		return domcol.Collection{}, false, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidInput, err)
	}

	created, err := s.repo.Put(ctx, col)
	if err != nil {
		return domcol.Collection{}, false, fmt.Errorf("put collection: %w", err)
	}
	s.dir.Put(col)
	return col, created, nil
}

// Get retrieves a collection by ID.
func (s *Service) Get(ctx context.Context, id string) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, id)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// List returns all collections sorted by name.
func (s *Service) List(ctx context.Context) ([]domcol.Collection, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Delete removes a collection's images, then the collection itself.
// Returns the number of images removed.
func (s *Service) Delete(ctx context.Context, id string) (int, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}

	n, err := s.images.DeleteByCollection(ctx, id)
	if err != nil {
		return n, fmt.Errorf("delete collection images: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return n, fmt.Errorf("delete collection: %w", err)
	}
	s.dir.Remove(id)
	s.log.Info("collection deleted", zap.String("collection", id), zap.Int("images", n))
	return n, nil
}

// Sync reloads the directory from storage.
func (s *Service) Sync(ctx context.Context) error {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("sync collections: %w", err)
	}
	s.dir.Replace(cols)
	s.log.Info("collection directory synced", zap.Int("collections", len(cols)))
	return nil
}
