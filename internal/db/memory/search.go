package memory

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geodex/internal/db"
)

// multiSearchParallelism bounds the fan-out of MultiSearch.
const multiSearchParallelism = 8

// Search evaluates q against every document of the index, in key order.
func (s *Store) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, err := s.index(q.IndexName)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	m, err := newMatcher(def, q.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	res := &db.SearchResult{}
	for _, key := range s.indexedKeys(def) {
		doc := s.docs[key]
		if !m.match(doc) {
			continue
		}
		if res.Total >= q.Offset && len(res.Entries) < limit {
			res.Entries = append(res.Entries, db.SearchEntry{Key: key, Fields: m.fields(doc, q.ReturnFields)})
		}
		res.Total++
	}
	return res, nil
}

// MultiSearch runs the queries concurrently; results are parallel to qs.
func (s *Store) MultiSearch(ctx context.Context, qs []*db.SearchQuery) ([]*db.SearchResult, error) {
	if len(qs) == 0 {
		return nil, nil
	}
	out := make([]*db.SearchResult, len(qs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(multiSearchParallelism)
	for i, q := range qs {
		g.Go(func() error {
			res, err := s.Search(gctx, q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per query
	}
	return out, nil
}
