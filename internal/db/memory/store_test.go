package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
)

const testIndex = "idx:img"

func testDef() *db.IndexDefinition {
	return db.NewIndex(testIndex).OnJSON().Prefix("img:").
		Tag("$.id").As("id").
		Tag("$.collection_id").As("collection_id").
		Numeric("$.lat").As("lat").
		Numeric("$.lon").As("lon").
		Tag("$.geohash").As("geohash").
		GeoShape("$.position").As("position").
		Numeric("$.metadata.altitude").As("altitude").
		Numeric("$.metadata.taken_at").As("taken_at").
		MustBuild()
}

type doc struct {
	ID           string  `json:"id"`
	CollectionID string  `json:"collection_id"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Geohash      string  `json:"geohash"`
	Position     string  `json:"position"`
	Metadata     struct {
		Altitude float64 `json:"altitude"`
		TakenAt  int64   `json:"taken_at"`
	} `json:"metadata"`
}

func newDoc(t *testing.T, id, col string, p geo.Point) doc {
	t.Helper()
	w, err := geo.PointWKT(p)
	if err != nil {
		t.Fatal(err)
	}
	d := doc{ID: id, CollectionID: col, Lat: p.Lat, Lon: p.Lon, Geohash: geo.Geohash(p, geo.StoredPrecision), Position: w}
	d.Metadata.Altitude = 100
	d.Metadata.TakenAt = 1_700_000_000
	return d
}

func seeded(t *testing.T, docs ...doc) *Store {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	if err := s.CreateIndex(ctx, testDef()); err != nil {
		t.Fatal(err)
	}
	items := make([]db.JSONSetItem, 0, len(docs))
	for _, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			t.Fatal(err)
		}
		items = append(items, db.JSONSetItem{Key: "img:" + d.ID, Path: "$", Data: b})
	}
	if err := s.JSONSetMulti(ctx, items); err != nil {
		t.Fatal(err)
	}
	return s
}

func manyDocs(t *testing.T, n int) []doc {
	t.Helper()
	out := make([]doc, 0, n)
	for i := range n {
		out = append(out, newDoc(t, fmt.Sprintf("%03d", i), "c1", geo.Point{Lat: 48 + float64(i)/100, Lon: 2}))
	}
	return out
}

func TestCreateIndex_Duplicate(t *testing.T) {
	s := seeded(t)
	err := s.CreateIndex(context.Background(), testDef())
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestJSONGet_Paths(t *testing.T) {
	s := seeded(t, newDoc(t, "a", "c1", geo.Point{Lat: 1, Lon: 2}))
	ctx := context.Background()

	b, err := s.JSONGet(ctx, "img:a", "$.id", "$.metadata.altitude")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string][]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got["$.id"][0] != "a" || got["$.metadata.altitude"][0] != float64(100) {
		t.Fatalf("unexpected projection %s", b)
	}

	if _, err := s.JSONGet(ctx, "img:missing"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJSONGetMulti_MissingIsNil(t *testing.T) {
	s := seeded(t, newDoc(t, "a", "c1", geo.Point{Lat: 1, Lon: 2}))
	out, err := s.JSONGetMulti(context.Background(), []string{"img:a", "img:b"}, "$.id")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] == nil || out[1] != nil {
		t.Fatalf("unexpected result %q", out)
	}
}

func TestDelMulti_Counts(t *testing.T) {
	s := seeded(t, manyDocs(t, 3)...)
	n, err := s.DelMulti(context.Background(), []string{"img:000", "img:001", "img:nope"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}
}

func TestSearch_TermAndLimit(t *testing.T) {
	docs := manyDocs(t, 5)
	docs = append(docs, newDoc(t, "x", "C2", geo.Point{Lat: 1, Lon: 1}))
	s := seeded(t, docs...)

	c := query.MatchAll().With(query.Term{Field: "collection_id", Values: []string{"c1"}})
	res, err := s.Search(context.Background(), &db.SearchQuery{IndexName: testIndex, Query: c, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 5 || len(res.Entries) != 2 {
		t.Fatalf("total=%d entries=%d", res.Total, len(res.Entries))
	}
	if res.Entries[0].Key != "img:000" || res.Entries[0].Fields["id"] != "000" {
		t.Fatalf("unexpected first entry %+v", res.Entries[0])
	}

	c = query.MatchAll().With(query.Term{Field: "collection_id", Values: []string{"c2"}})
	res, err = s.Search(context.Background(), &db.SearchQuery{IndexName: testIndex, Query: c})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Fatalf("tags match case-insensitively, got total %d", res.Total)
	}
}

func TestSearch_UnknownField(t *testing.T) {
	s := seeded(t)
	c := query.MatchAll().With(query.Term{Field: "nope", Values: []string{"x"}})
	if _, err := s.Search(context.Background(), &db.SearchQuery{IndexName: testIndex, Query: c}); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestSearch_Geometry(t *testing.T) {
	s := seeded(t,
		newDoc(t, "in", "c1", geo.Point{Lat: 0.5, Lon: 0.5}),
		newDoc(t, "out", "c1", geo.Point{Lat: 5, Lon: 5}),
	)
	square := geo.Ring{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0}}
	ctx := context.Background()

	res, err := s.Search(ctx, &db.SearchQuery{IndexName: testIndex, Query: query.MatchAll().With(query.Within{Field: "position", Ring: square})})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Entries[0].Key != "img:in" {
		t.Fatalf("within: %+v", res)
	}

	box := geo.NewBoundingBox(10, 4, 4, 6)
	res, err = s.Search(ctx, &db.SearchQuery{IndexName: testIndex, Query: query.MatchAll().With(query.Box{LatField: "lat", LonField: "lon", Box: box})})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Entries[0].Key != "img:out" {
		t.Fatalf("box: %+v", res)
	}

	line := geo.Ring{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}
	_, err = s.Search(ctx, &db.SearchQuery{IndexName: testIndex, Query: query.MatchAll().With(query.Within{Field: "position", Ring: line})})
	if !errors.Is(err, db.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestSearch_Interval(t *testing.T) {
	s := seeded(t, newDoc(t, "a", "c1", geo.Point{Lat: 1, Lon: 1}))
	ctx := context.Background()
	taken := time.Unix(1_700_000_000, 0)

	for _, tc := range []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"inclusive", taken, taken, 1},
		{"open start", time.Time{}, taken.Add(time.Hour), 1},
		{"after", taken.Add(time.Second), time.Time{}, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := query.MatchAll().With(query.Interval{Field: "taken_at", From: tc.from, To: tc.to})
			res, err := s.Search(ctx, &db.SearchQuery{IndexName: testIndex, Query: c})
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != tc.want {
				t.Fatalf("total %d, want %d", res.Total, tc.want)
			}
		})
	}
}

func TestMultiSearch_Parallel(t *testing.T) {
	s := seeded(t,
		newDoc(t, "a", "c1", geo.Point{Lat: 0.5, Lon: 0.5}),
		newDoc(t, "b", "c1", geo.Point{Lat: 5.5, Lon: 5.5}),
	)
	qs := []*db.SearchQuery{
		{IndexName: testIndex, Query: query.MatchAll().With(query.Term{Field: "id", Values: []string{"b"}})},
		{IndexName: testIndex, Query: query.MatchAll().With(query.Term{Field: "id", Values: []string{"z"}})},
		{IndexName: testIndex, Query: query.MatchAll()},
	}
	res, err := s.MultiSearch(context.Background(), qs)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 || res[0].Total != 1 || res[1].Total != 0 || res[2].Total != 2 {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestAggregateGeo_Cells(t *testing.T) {
	s := seeded(t,
		newDoc(t, "a", "c1", geo.Point{Lat: 48.85, Lon: 2.35}),
		newDoc(t, "b", "c1", geo.Point{Lat: 48.86, Lon: 2.34}),
		newDoc(t, "c", "c1", geo.Point{Lat: -33.86, Lon: 151.2}),
	)
	q := &db.GeoAggregateQuery{
		IndexName:    testIndex,
		Query:        query.MatchAll(),
		GeohashField: "geohash",
		LatField:     "lat",
		LonField:     "lon",
		SampleField:  "id",
		Precision:    1,
		SampleSize:   1,
	}
	cells, err := s.AggregateGeo(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if len(cells) != 2 {
		t.Fatalf("got %d cells, want 2", len(cells))
	}
	var total int64
	for _, c := range cells {
		total += c.Count
		if len(c.Samples) != 1 {
			t.Fatalf("cell %s has %d samples", c.Cell, len(c.Samples))
		}
	}
	if total != 3 {
		t.Fatalf("counts sum to %d", total)
	}
	paris := cells[0]
	if cells[1].Cell == "u" {
		paris = cells[1]
	}
	if paris.Cell != "u" || paris.Count != 2 || paris.Samples[0] != "a" {
		t.Fatalf("unexpected paris cell %+v", paris)
	}
	if paris.CenterLat < 48.85 || paris.CenterLat > 48.86 {
		t.Fatalf("center lat %v outside members", paris.CenterLat)
	}
}

func TestCursor_Pages(t *testing.T) {
	s := seeded(t, manyDocs(t, 25)...)
	ctx := context.Background()

	page, err := s.OpenCursor(ctx, &db.CursorQuery{IndexName: testIndex, Query: query.MatchAll(), LoadFields: []string{"id"}, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	sizes := []int{len(page.Entries)}
	for page.CursorID != 0 {
		page, err = s.ReadCursor(ctx, testIndex, page.CursorID, 10)
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, len(page.Entries))
	}
	if fmt.Sprint(sizes) != "[10 10 5]" {
		t.Fatalf("page sizes %v", sizes)
	}
	if s.OpenCursors() != 0 {
		t.Fatalf("exhausted cursor still held")
	}
}

func TestCursor_IdleExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	s := NewStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testDef()); err != nil {
		t.Fatal(err)
	}
	for _, d := range manyDocs(t, 3) {
		b, _ := json.Marshal(d)
		if err := s.JSONSet(ctx, "img:"+d.ID, "$", b); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.OpenCursor(ctx, &db.CursorQuery{IndexName: testIndex, Query: query.MatchAll(), PageSize: 1, MaxIdle: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.ReadCursor(ctx, testIndex, page.CursorID, 1); !errors.Is(err, db.ErrCursorNotFound) {
		t.Fatalf("expected ErrCursorNotFound, got %v", err)
	}
	if err := s.DeleteCursor(ctx, testIndex, page.CursorID); !errors.Is(err, db.ErrCursorNotFound) {
		t.Fatalf("expected ErrCursorNotFound on delete, got %v", err)
	}
}
