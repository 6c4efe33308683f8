// Package site stores field sites and answers which site contains a point.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
	"github.com/kailas-cloud/geodex/internal/metrics"
	"github.com/kailas-cloud/geodex/internal/repository/cursor"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
)

// Page sizes and result caps.
const (
	ListPageSize = 10
	MaxViewSites = 1000
)

// store is the consumer interface for sites (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	MultiSearch(ctx context.Context, qs []*db.SearchQuery) ([]*db.SearchResult, error)
}

// Repo implements the site repository.
type Repo struct {
	store  store
	layout schema.Layout
	pages  *cursor.Paginator
	ttl    time.Duration
	log    *zap.Logger
}

// New creates a site repository.
func New(s store, layout schema.Layout, pages *cursor.Paginator, cursorTTL time.Duration, log *zap.Logger) *Repo {
	return &Repo{store: s, layout: layout, pages: pages, ttl: cursorTTL, log: log}
}

// Detect resolves, for each point, the site whose boundary contains it. All lookups
// travel in one batch and the result is parallel to points.
func (r *Repo) Detect(ctx context.Context, points []geo.Point) ([]domsite.Match, error) {
	if len(points) == 0 {
		return []domsite.Match{}, nil
	}

	qs := make([]*db.SearchQuery, len(points))
	for i, p := range points {
		qs[i] = &db.SearchQuery{
			IndexName:    r.layout.SiteIndex(),
			Query:        query.MatchAll().With(query.Contains{Field: domsite.FieldBoundary, Point: p.Clamped()}),
			Limit:        1,
			ReturnFields: []string{domsite.FieldCode},
		}
	}

	results, err := r.store.MultiSearch(ctx, qs)
	if err != nil {
		return nil, fmt.Errorf("detect sites: %w", err)
	}
	if len(results) != len(points) {
		metrics.InvariantViolationsTotal.WithLabelValues("site_responses").Inc()
		return nil, domain.NewCountMismatch(domain.ErrResponseCountMismatch, len(points), len(results))
	}

	matches := make([]domsite.Match, len(points))
	for i, res := range results {
		if res == nil || len(res.Entries) == 0 {
			continue
		}
		e := res.Entries[0]
		code := e.Fields[domsite.FieldCode]
		if code == "" {
			code = schema.TrimKey(e.Key, r.layout.SitePrefix())
		}
		matches[i] = domsite.Match{Code: code, Found: true}
	}
	return matches, nil
}

// Within returns the sites whose boundary intersects the viewport. A viewport
// crossing the antimeridian is searched as its two halves.
func (r *Repo) Within(ctx context.Context, box geo.BoundingBox) ([]domsite.Site, error) {
	if !box.Valid() {
		return []domsite.Site{}, fmt.Errorf("viewport %s: %w", box, domain.ErrInvalidGeometry)
	}

	boxes := []geo.BoundingBox{box}
	if box.CrossesAntimeridian() {
		boxes = []geo.BoundingBox{
			geo.NewBoundingBox(box.Top(), box.Left(), box.Bottom(), geo.MaxLon),
			geo.NewBoundingBox(box.Top(), geo.MinLon, box.Bottom(), box.Right()),
		}
	}
	qs := make([]*db.SearchQuery, len(boxes))
	for i, b := range boxes {
		qs[i] = &db.SearchQuery{
			IndexName:    r.layout.SiteIndex(),
			Query:        query.MatchAll().With(query.Intersects{Field: domsite.FieldBoundary, Ring: b.Ring()}),
			Limit:        MaxViewSites,
			ReturnFields: siteFields,
		}
	}

	results, err := r.store.MultiSearch(ctx, qs)
	if err != nil {
		return nil, fmt.Errorf("sites in viewport: %w", err)
	}

	seen := make(map[string]struct{})
	sites := make([]domsite.Site, 0)
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, e := range res.Entries {
			if _, dup := seen[e.Key]; dup {
				continue
			}
			seen[e.Key] = struct{}{}
			s, err := fromFields(e.Fields)
			if err != nil {
				r.log.Debug("site skipped", zap.String("key", e.Key), zap.Error(err))
				continue
			}
			sites = append(sites, s)
		}
	}
	return sites, nil
}

// List enumerates every stored site with a cursor.
func (r *Repo) List(ctx context.Context) ([]domsite.Site, error) {
	q := db.CursorQuery{
		IndexName:  r.layout.SiteIndex(),
		Query:      query.MatchAll(),
		LoadFields: siteFields,
		PageSize:   ListPageSize,
		MaxIdle:    r.ttl,
	}

	var sites []domsite.Site
	err := r.pages.Each(ctx, q, func(page cursor.Page) error {
		for _, e := range page.Entries {
			s, err := fromFields(e.Fields)
			if err != nil {
				r.log.Debug("site skipped", zap.String("key", e.Key), zap.Error(err))
				continue
			}
			sites = append(sites, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	if sites == nil {
		sites = []domsite.Site{}
	}
	return sites, nil
}

// Put stores sites in one pipelined round trip, replacing existing ones.
func (r *Repo) Put(ctx context.Context, sites []domsite.Site) error {
	if len(sites) == 0 {
		return nil
	}
	items := make([]db.JSONSetItem, len(sites))
	for i, s := range sites {
		doc, err := toDoc(s)
		if err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal site %s: %w", s.Code(), err)
		}
		items[i] = db.JSONSetItem{Key: r.layout.SiteKey(s.Code()), Path: "$", Data: data}
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("json.set sites: %w", err)
	}
	return nil
}
