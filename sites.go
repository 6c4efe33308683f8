package geodex

import (
	"context"
	"fmt"
	"time"

	siteuc "github.com/kailas-cloud/geodex/internal/usecase/site"
)

// SiteService manages research sites and point-in-site detection.
type SiteService struct {
	svc *siteuc.Service
	obs *observer
}

// Put stores sites, replacing existing ones with the same code.
func (s *SiteService) Put(ctx context.Context, sites ...Site) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("site.put", start, err) }()

	if err = s.svc.Put(ctx, sites); err != nil {
		return fmt.Errorf("put sites: %w", err)
	}
	return nil
}

// List returns every site.
func (s *SiteService) List(ctx context.Context) (_ []Site, err error) {
	start := time.Now()
	defer func() { s.obs.observe("site.list", start, err) }()

	sites, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

// Get returns a site by code from the client's site cache, which Put keeps
// current. A code not in the cache is reported as ErrNotFound.
func (s *SiteService) Get(code string) (Site, error) {
	st, err := s.svc.Get(code)
	if err != nil {
		return Site{}, fmt.Errorf("get site: %w", err)
	}
	return st, nil
}

// Detect returns, per point, the site whose boundary contains it.
func (s *SiteService) Detect(ctx context.Context, points ...Point) (_ []SiteMatch, err error) {
	start := time.Now()
	defer func() { s.obs.observe("site.detect", start, err) }()

	matches, err := s.svc.Detect(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("detect sites: %w", err)
	}
	return matches, nil
}
