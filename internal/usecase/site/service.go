// Package site detects which field site a point lies in and keeps the local site cache.
package site

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
)

// Service handles site detection and the site cache.
type Service struct {
	repo Repository
	log  *zap.Logger

	mu    sync.RWMutex
	cache map[string]domsite.Site
}

// New creates a site service.
func New(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, cache: make(map[string]domsite.Site)}
}

// Detect returns, for each point, the site whose boundary contains it.
// The result is parallel to points.
func (s *Service) Detect(ctx context.Context, points []geo.Point) ([]domsite.Match, error) {
	for i, p := range points {
		if !p.Valid() {
			return nil, fmt.Errorf("point %d %v: %w", i, p, domain.ErrInvalidGeometry)
		}
	}
	matches, err := s.repo.Detect(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("detect sites: %w", err)
	}
	return matches, nil
}

// Put stores sites and adds them to the cache.
func (s *Service) Put(ctx context.Context, sites []domsite.Site) error {
	if err := s.repo.Put(ctx, sites); err != nil {
		return fmt.Errorf("put sites: %w", err)
	}
	s.mu.Lock()
	for _, st := range sites {
		s.cache[st.Code()] = st
	}
	s.mu.Unlock()
	return nil
}

// List enumerates every stored site.
func (s *Service) List(ctx context.Context) ([]domsite.Site, error) {
	sites, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

// Sync reloads the cache from storage.
func (s *Service) Sync(ctx context.Context) error {
	sites, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("sync sites: %w", err)
	}
	cache := make(map[string]domsite.Site, len(sites))
	for _, st := range sites {
		cache[st.Code()] = st
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	s.log.Info("site cache synced", zap.Int("sites", len(sites)))
	return nil
}

// Get returns a site from the cache. Sites stored by another process show up
// after the next Sync.
func (s *Service) Get(code string) (domsite.Site, error) {
	s.mu.RLock()
	st, ok := s.cache[code]
	s.mu.RUnlock()
	if !ok {
		return domsite.Site{}, fmt.Errorf("site %s: %w", code, domain.ErrNotFound)
	}
	return st, nil
}
