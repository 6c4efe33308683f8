// Package image stores image metadata documents and serves selection lookups.
package image

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/batch"
	domimg "github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/metrics"
	"github.com/kailas-cloud/geodex/internal/repository/cursor"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
)

// DeletePageSize is the number of keys enumerated and deleted per round trip.
const DeletePageSize = 500

// ExportPageSize is the default number of storage paths read per cursor page.
const ExportPageSize = 1000

// store is the consumer interface for image documents (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// Repo implements the image repository.
type Repo struct {
	store   store
	layout  schema.Layout
	pages   *cursor.Paginator
	limiter *rate.Limiter
	export  int
	log     *zap.Logger
}

// New creates an image repository. Bulk deletion is unpaced until WithDeleteRate is set.
func New(s store, layout schema.Layout, pages *cursor.Paginator, log *zap.Logger) *Repo {
	return &Repo{
		store:   s,
		layout:  layout,
		pages:   pages,
		limiter: rate.NewLimiter(rate.Inf, 1),
		export:  ExportPageSize,
		log:     log,
	}
}

// WithExportPageSize sets the cursor page size used by PathsMatching.
func (r *Repo) WithExportPageSize(n int) *Repo {
	if n > 0 {
		r.export = n
	}
	return r
}

// WithDeleteRate paces bulk deletion to pagesPerSecond delete batches.
func (r *Repo) WithDeleteRate(pagesPerSecond float64) *Repo {
	if pagesPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(pagesPerSecond), 1)
	}
	return r
}

// Index stores image documents in one pipelined round trip. Documents that fail
// to encode are reported per item and not written.
func (r *Repo) Index(ctx context.Context, imgs []domimg.Metadata) ([]batch.Result, error) {
	results := make([]batch.Result, len(imgs))
	items := make([]db.JSONSetItem, 0, len(imgs))
	written := make([]int, 0, len(imgs))

	for i, m := range imgs {
		doc, err := toDoc(m)
		if err != nil {
			results[i] = batch.NewError(m.ID(), err)
			continue
		}
		data, err := json.Marshal(doc)
		if err != nil {
			results[i] = batch.NewError(m.ID(), fmt.Errorf("marshal image: %w", err))
			continue
		}
		items = append(items, db.JSONSetItem{Key: r.layout.ImageKey(m.ID()), Path: "$", Data: data})
		written = append(written, i)
	}

	if len(items) > 0 {
		if err := r.store.JSONSetMulti(ctx, items); err != nil {
			return nil, fmt.Errorf("json.set images: %w", err)
		}
	}
	for _, i := range written {
		results[i] = batch.NewOK(imgs[i].ID())
	}
	return results, nil
}

// Lookup fetches display rows for ids in one round trip, in input order.
// Missing or malformed documents are skipped.
func (r *Repo) Lookup(ctx context.Context, ids []string, names domimg.CollectionNames) ([]domimg.Row, error) {
	if len(ids) == 0 {
		return []domimg.Row{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.layout.ImageKey(id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, lookupPaths...)
	if err != nil {
		return nil, fmt.Errorf("json.get images: %w", err)
	}

	rows := make([]domimg.Row, 0, len(raws))
	for i, raw := range raws {
		if raw == nil {
			metrics.LookupSkippedTotal.Inc()
			r.log.Debug("lookup: image missing", zap.String("id", ids[i]))
			continue
		}
		rec, err := parseLookup(raw)
		if err != nil {
			metrics.LookupSkippedTotal.Inc()
			r.log.Debug("lookup: image skipped", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		rows = append(rows, domimg.Row{
			ID:             rec.id,
			DisplayName:    domimg.DisplayName(rec.storagePath),
			CollectionName: names.Name(rec.collectionID),
			Altitude:       rec.altitude,
			CameraModel:    rec.cameraModel,
			TakenAt:        rec.takenAt,
		})
	}
	return rows, nil
}

// DeleteByCollection removes every image of a collection, one cursor page per
// pipelined delete. It returns the number of keys removed.
func (r *Repo) DeleteByCollection(ctx context.Context, collectionID string) (int, error) {
	q := db.CursorQuery{
		IndexName: r.layout.ImageIndex(),
		Query:     query.MatchAll().With(query.Term{Field: domimg.FieldCollectionID, Values: []string{collectionID}}),
		PageSize:  DeletePageSize,
	}

	var deleted int
	err := r.pages.Each(ctx, q, func(page cursor.Page) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("delete pacing: %w", err)
		}
		keys := make([]string, len(page.Entries))
		for i, e := range page.Entries {
			keys[i] = e.Key
		}
		n, err := r.store.DelMulti(ctx, keys)
		if err != nil {
			return fmt.Errorf("del images: %w", err)
		}
		deleted += n
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("delete collection %s images: %w", collectionID, err)
	}
	return deleted, nil
}

// PathsMatching returns the storage path of every image matching q, in cursor order.
func (r *Repo) PathsMatching(ctx context.Context, q *query.Compiled) ([]string, error) {
	if q == nil {
		q = query.MatchAll()
	}
	cq := db.CursorQuery{
		IndexName:  r.layout.ImageIndex(),
		Query:      q,
		LoadFields: []string{domimg.FieldStoragePath},
		PageSize:   r.export,
	}

	paths := []string{}
	pages := 0
	err := r.pages.Each(ctx, cq, func(page cursor.Page) error {
		pages++
		for _, e := range page.Entries {
			if p := e.Fields[domimg.FieldStoragePath]; p != "" {
				paths = append(paths, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export storage paths: %w", err)
	}
	r.log.Debug("storage paths exported", zap.Int("paths", len(paths)), zap.Int("pages", pages))
	return paths, nil
}
