// Package collection stores image collection reference rows.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/repository/cursor"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
)

// ListPageSize is the cursor page size used to enumerate collections.
const ListPageSize = 10

// store is the consumer interface for collections (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// Repo implements usecase/collection.Repository.
type Repo struct {
	store  store
	layout schema.Layout
	pages  *cursor.Paginator
	ttl    time.Duration
}

// New creates a collection repository.
func New(s store, layout schema.Layout, pages *cursor.Paginator, cursorTTL time.Duration) *Repo {
	return &Repo{store: s, layout: layout, pages: pages, ttl: cursorTTL}
}

// Put creates or replaces a collection. Returns true if created.
func (r *Repo) Put(ctx context.Context, col domcol.Collection) (bool, error) {
	key := r.layout.CollectionKey(col.ID())
	_, err := r.store.JSONGet(ctx, key, "$.id")
	created := errors.Is(err, db.ErrKeyNotFound)
	if err != nil && !created {
		return false, fmt.Errorf("check collection %s: %w", col.ID(), err)
	}

	data, err := json.Marshal(toDoc(col))
	if err != nil {
		return false, fmt.Errorf("marshal collection: %w", err)
	}
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, fmt.Errorf("json.set collection %s: %w", col.ID(), err)
	}
	return created, nil
}

// Get retrieves a collection by ID.
func (r *Repo) Get(ctx context.Context, id string) (domcol.Collection, error) {
	raw, err := r.store.JSONGet(ctx, r.layout.CollectionKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domcol.Collection{}, domain.ErrNotFound
		}
		return domcol.Collection{}, fmt.Errorf("json.get collection %s: %w", id, err)
	}
	var doc collectionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domcol.Collection{}, fmt.Errorf("decode collection %s: %w", id, err)
	}
	return doc.toDomain(), nil
}

// List enumerates all collections with a cursor, sorted by name.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	q := db.CursorQuery{
		IndexName:  r.layout.CollectionIndex(),
		Query:      query.MatchAll(),
		LoadFields: listFields,
		PageSize:   ListPageSize,
		MaxIdle:    r.ttl,
	}

	cols := []domcol.Collection{}
	err := r.pages.Each(ctx, q, func(page cursor.Page) error {
		for _, e := range page.Entries {
			c := fromFields(e.Fields)
			if c.ID() == "" {
				continue
			}
			cols = append(cols, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].Name() < cols[j].Name() })
	return cols, nil
}

// Delete removes a collection row. Its images are removed separately.
func (r *Repo) Delete(ctx context.Context, id string) error {
	n, err := r.store.DelMulti(ctx, []string{r.layout.CollectionKey(id)})
	if err != nil {
		return fmt.Errorf("del collection %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
