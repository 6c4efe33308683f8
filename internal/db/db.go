package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	IndexManager
	Searcher
	Aggregator
	Cursors
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	// JSONGetMulti fetches many keys in one round trip. Missing keys yield a nil entry.
	JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) (int, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
	// MultiSearch runs independent queries in one round trip; results are parallel to qs.
	MultiSearch(ctx context.Context, qs []*SearchQuery) ([]*SearchResult, error)
}

// Aggregator groups matching documents into geohash cells.
type Aggregator interface {
	AggregateGeo(ctx context.Context, q *GeoAggregateQuery) ([]GeoCell, error)
}

// Cursors provides server-side result cursors for bulk enumeration.
type Cursors interface {
	OpenCursor(ctx context.Context, q *CursorQuery) (*CursorPage, error)
	ReadCursor(ctx context.Context, index string, id int64, count int) (*CursorPage, error)
	DeleteCursor(ctx context.Context, index string, id int64) error
}
