package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- json.go tests ---

func TestJSONSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisString("OK")),
		})

	s := NewStoreForTest(c)
	err := s.JSONSetMulti(context.Background(), []db.JSONSetItem{
		{Key: "img:1", Path: "$", Data: []byte(`{"id":"1"}`)},
		{Key: "img:2", Path: "$", Data: []byte(`{"id":"2"}`)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONSetMulti_ItemError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString("OK")),
			mock.ErrorResult(errors.New("boom")),
		})

	s := NewStoreForTest(c)
	err := s.JSONSetMulti(context.Background(), []db.JSONSetItem{
		{Key: "img:1", Path: "$", Data: []byte(`{}`)},
		{Key: "img:2", Path: "$", Data: []byte(`{}`)},
	})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpJSONSet {
		t.Fatalf("expected JSON.SET db.Error, got %v", err)
	}
	if !strings.Contains(err.Error(), "img:2") {
		t.Errorf("error should name the failing key: %v", err)
	}
}

func TestJSONGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "img:x")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	if _, err := s.JSONGet(context.Background(), "img:x"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJSONGetMulti_MissingKeyYieldsNil(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString(`{"$.id":["1"]}`)),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	got, err := s.JSONGetMulti(context.Background(), []string{"img:1", "img:2"}, "$.id", "$.storage_path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] == nil || got[1] != nil {
		t.Fatalf("got %q", got)
	}
}

func TestJSONGetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	got, err := s.JSONGetMulti(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestDelMulti(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), mock.Match("DEL", "img:1"), mock.Match("DEL", "img:2"), mock.Match("DEL", "img:3")).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(1)),
		})

	s := NewStoreForTest(c)
	n, err := s.DelMulti(context.Background(), []string{"img:1", "img:2", "img:3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	def := db.NewIndex("geodex:sites").
		OnJSON().
		Prefix("site:").
		Tag("$.code").As("code").
		GeoShape("$.boundary").As("boundary").
		MustBuild()

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.CREATE", "geodex:sites", "ON", "JSON", "PREFIX", "1", "site:", "SCHEMA",
			"$.code", "AS", "code", "TAG",
			"$.boundary", "AS", "boundary", "GEOSHAPE", "FLAT",
		)).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), db.NewIndex("x").Tag("t").MustBuild())
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists_Unknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "nope")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c)
	ok, err := s.IndexExists(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("got %v, %v", ok, err)
	}
}

// --- query.go tests ---

func TestBuildQuery_MatchAll(t *testing.T) {
	qs, params, err := buildQuery(query.MatchAll())
	if err != nil || qs != "*" || params != nil {
		t.Fatalf("got %q %v %v", qs, params, err)
	}
}

func TestBuildQuery_Fragments(t *testing.T) {
	lo := 100.0
	b, _ := query.NewBounds(&lo, nil, nil, nil)
	from := time.Unix(1_500_000_000, 0)

	c := query.MatchAll().With(
		query.Term{Field: "camera_model", Values: []string{"FC 6310", "L1D-20c"}},
		query.Range{Field: "altitude", Bounds: b},
		query.Interval{Field: "taken_at", From: from},
	)
	qs, params, err := buildQuery(c)
	if err != nil {
		t.Fatal(err)
	}
	want := `@camera_model:{FC\ 6310 | L1D\-20c} @altitude:[(100 +inf] @taken_at:[1500000000 +inf]`
	if qs != want {
		t.Errorf("query = %q\nwant    %q", qs, want)
	}
	if params != nil {
		t.Errorf("params = %v, want none", params)
	}
}

func TestBuildQuery_GeoShapeParams(t *testing.T) {
	ring := geo.Ring{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}
	c := query.MatchAll().With(
		query.Within{Field: "position", Ring: ring},
		query.Contains{Field: "boundary", Point: geo.Point{Lat: 0.2, Lon: 0.5}},
	)
	qs, params, err := buildQuery(c)
	if err != nil {
		t.Fatal(err)
	}
	if qs != "@position:[WITHIN $p0] @boundary:[CONTAINS $p1]" {
		t.Errorf("query = %q", qs)
	}
	if len(params) != 4 || params[0] != "p0" || params[2] != "p1" {
		t.Fatalf("params = %v", params)
	}
	if !strings.HasPrefix(params[1], "POLYGON") || !strings.HasPrefix(params[3], "POINT") {
		t.Errorf("params = %v", params)
	}
}

func TestBuildQuery_DegenerateRing(t *testing.T) {
	c := query.MatchAll().With(query.Intersects{Field: "boundary", Ring: geo.Ring{{Lat: 1, Lon: 1}}})
	if _, _, err := buildQuery(c); !errors.Is(err, db.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

func TestBuildBoxFilter(t *testing.T) {
	plain := buildBoxFilter(query.Box{LatField: "lat", LonField: "lon", Box: geo.NewBoundingBox(10, -20, -10, 20)})
	if plain != "@lat:[-10 10] @lon:[-20 20]" {
		t.Errorf("plain = %q", plain)
	}

	wrapped := buildBoxFilter(query.Box{LatField: "lat", LonField: "lon", Box: geo.NewBoundingBox(10, 170, -10, -170)})
	if wrapped != "@lat:[-10 10] (@lon:[170 180] | @lon:[-180 -170])" {
		t.Errorf("wrapped = %q", wrapped)
	}
}

func TestUnwrapValue(t *testing.T) {
	tests := map[string]string{
		`["NIWO"]`:  "NIWO",
		`[40.5]`:    "40.5",
		`plain`:     "plain",
		`["a","b"]`: `["a","b"]`,
		`[`:         `[`,
	}
	for in, want := range tests {
		if got := unwrapValue(in); got != want {
			t.Errorf("unwrapValue(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- search.go tests ---

func TestSearch_ArgsAndParse(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "sites" &&
				cmd[2] == "@code:{NIWO}" &&
				slices.Contains(cmd, "RETURN") &&
				cmd[len(cmd)-2] == "DIALECT" && cmd[len(cmd)-1] == "3"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("site:NIWO"),
			mock.RedisArray(mock.RedisString("code"), mock.RedisString(`["NIWO"]`)),
		)))

	s := NewStoreForTest(c)
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName:    "sites",
		Query:        query.MatchAll().With(query.Term{Field: "code", Values: []string{"NIWO"}}),
		ReturnFields: []string{"code"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Entries[0].Key != "site:NIWO" || res.Entries[0].Fields["code"] != "NIWO" {
		t.Errorf("entry = %+v", res.Entries[0])
	}
}

func TestMultiSearch_ParallelResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisArray(mock.RedisInt64(0))),
			mock.Result(mock.RedisArray(
				mock.RedisInt64(1),
				mock.RedisString("site:ABBY"),
				mock.RedisArray(mock.RedisString("code"), mock.RedisString("ABBY")),
			)),
		})

	s := NewStoreForTest(c)
	q := func(lat float64) *db.SearchQuery {
		return &db.SearchQuery{
			IndexName: "sites",
			Query:     query.MatchAll().With(query.Contains{Field: "boundary", Point: geo.Point{Lat: lat}}),
			Limit:     1,
		}
	}
	res, err := s.MultiSearch(context.Background(), []*db.SearchQuery{q(1), q(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 || res[0].Total != 0 || res[1].Entries[0].Fields["code"] != "ABBY" {
		t.Fatalf("results = %+v", res)
	}
}

// --- aggregate.go tests ---

func TestAggregateGeo(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.AGGREGATE" &&
				slices.Contains(cmd, "substr(@geohash, 0, 4)") &&
				slices.Contains(cmd, "RANDOM_SAMPLE") &&
				slices.Contains(cmd, "GROUPBY")
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisArray(
				mock.RedisString("cell"), mock.RedisString("9xj6"),
				mock.RedisString("count"), mock.RedisString("3"),
				mock.RedisString("center_lat"), mock.RedisString("40.05"),
				mock.RedisString("center_lon"), mock.RedisString("-105.58"),
				mock.RedisString("sample_ids"), mock.RedisArray(mock.RedisString("a"), mock.RedisString("b")),
			),
			mock.RedisArray( // no centroid: skipped
				mock.RedisString("cell"), mock.RedisString("9xj7"),
				mock.RedisString("count"), mock.RedisString("1"),
			),
		)))

	s := NewStoreForTest(c)
	cells, err := s.AggregateGeo(context.Background(), &db.GeoAggregateQuery{
		IndexName:    "images",
		Query:        query.MatchAll(),
		GeohashField: "geohash",
		LatField:     "lat",
		LonField:     "lon",
		SampleField:  "id",
		Precision:    4,
		SampleSize:   2,
		MaxCells:     100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cells) != 1 {
		t.Fatalf("cells = %+v", cells)
	}
	got := cells[0]
	if got.Cell != "9xj6" || got.Count != 3 || got.CenterLat != 40.05 || got.CenterLon != -105.58 {
		t.Errorf("cell = %+v", got)
	}
	if len(got.Samples) != 2 {
		t.Errorf("samples = %v", got.Samples)
	}
}

func TestAggregateGeo_GeometryRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Invalid WKT: bad polygon")))

	s := NewStoreForTest(c)
	_, err := s.AggregateGeo(context.Background(), &db.GeoAggregateQuery{
		IndexName: "images", GeohashField: "geohash", LatField: "lat", LonField: "lon", Precision: 1,
	})
	if !errors.Is(err, db.ErrInvalidGeometry) {
		t.Fatalf("expected ErrInvalidGeometry, got %v", err)
	}
}

// --- cursor.go tests ---

func cursorReply(id int64, keys ...string) rueidis.RedisMessage {
	rows := []rueidis.RedisMessage{mock.RedisInt64(int64(len(keys)))}
	for _, k := range keys {
		rows = append(rows, mock.RedisArray(
			mock.RedisString("__key"), mock.RedisString(k),
			mock.RedisString("id"), mock.RedisString(strings.TrimPrefix(k, "img:")),
		))
	}
	return mock.RedisArray(mock.RedisArray(rows...), mock.RedisInt64(id))
}

func TestOpenCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			i := slices.Index(cmd, "WITHCURSOR")
			return cmd[0] == "FT.AGGREGATE" && i > 0 &&
				cmd[i+1] == "COUNT" && cmd[i+2] == "2" &&
				cmd[i+3] == "MAXIDLE" && cmd[i+4] == "60000" &&
				slices.Contains(cmd, "@__key")
		})).
		Return(mock.Result(cursorReply(42, "img:1", "img:2")))

	s := NewStoreForTest(c)
	page, err := s.OpenCursor(context.Background(), &db.CursorQuery{
		IndexName:  "images",
		Query:      query.MatchAll(),
		LoadFields: []string{"id"},
		PageSize:   2,
		MaxIdle:    time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.CursorID != 42 || len(page.Entries) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Entries[1].Key != "img:2" || page.Entries[1].Fields["id"] != "2" {
		t.Errorf("entry = %+v", page.Entries[1])
	}
	if _, ok := page.Entries[0].Fields["__key"]; ok {
		t.Error("__key should be moved out of fields")
	}
}

func TestReadCursor_Exhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.CURSOR", "READ", "images", "42", "COUNT", "10")).
		Return(mock.Result(cursorReply(0, "img:9")))

	s := NewStoreForTest(c)
	page, err := s.ReadCursor(context.Background(), "images", 42, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.CursorID != 0 || len(page.Entries) != 1 {
		t.Fatalf("page = %+v", page)
	}
}

func TestReadCursor_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Cursor not found, id: 42")))

	s := NewStoreForTest(c)
	if _, err := s.ReadCursor(context.Background(), "images", 42, 10); !errors.Is(err, db.ErrCursorNotFound) {
		t.Fatalf("expected ErrCursorNotFound, got %v", err)
	}
}

func TestDeleteCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.CURSOR", "DEL", "images", "42")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.DeleteCursor(context.Background(), "images", 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
