package db

import (
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// SearchQuery is the input for a filtered document search.
type SearchQuery struct {
	IndexName    string
	Query        *query.Compiled
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search or cursor page.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// GeoAggregateQuery groups documents matching Query by a prefix of a stored geohash.
type GeoAggregateQuery struct {
	IndexName    string
	Query        *query.Compiled
	GeohashField string
	LatField     string
	LonField     string
	SampleField  string
	Precision    int
	SampleSize   int
	MaxCells     int
}

// GeoCell is one aggregation group.
type GeoCell struct {
	Cell      string
	Count     int64
	CenterLat float64
	CenterLon float64
	Samples   []string
}

// CursorQuery opens a server-side cursor over documents matching Query.
type CursorQuery struct {
	IndexName  string
	Query      *query.Compiled
	LoadFields []string
	PageSize   int
	MaxIdle    time.Duration
}

// CursorPage is one page read from a cursor. CursorID is zero once the cursor is exhausted.
type CursorPage struct {
	CursorID int64
	Entries  []SearchEntry
}
