package query

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

func mustTerm(t *testing.T, field string, values ...string) TermCondition {
	t.Helper()
	c, err := NewTerm(field, values...)
	if err != nil {
		t.Fatalf("NewTerm: %v", err)
	}
	return c
}

func mustPolygon(t *testing.T, points ...geo.Point) PolygonCondition {
	t.Helper()
	c, err := NewPolygon("position", points...)
	if err != nil {
		t.Fatalf("NewPolygon: %v", err)
	}
	return c
}

func f64(v float64) *float64 { return &v }

func TestCompile_Empty(t *testing.T) {
	if !Compile(nil).IsMatchAll() {
		t.Error("empty list should compile to match-all")
	}
	var c *Compiled
	if !c.IsMatchAll() || c.Fragments() != nil {
		t.Error("nil compiled query should behave as match-all")
	}
}

func TestCompile_DisabledEqualsOmitted(t *testing.T) {
	term := mustTerm(t, "camera_model", "FC6310")
	b, err := NewBounds(nil, f64(100), nil, f64(500))
	if err != nil {
		t.Fatal(err)
	}
	rng, _ := NewRange("altitude", b)
	poly := mustPolygon(t, geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 1}, geo.Point{Lat: 1, Lon: 1})

	all := []Entry{
		{ID: "a", Enabled: true, Condition: term},
		{ID: "b", Enabled: true, Condition: rng},
		{ID: "c", Enabled: true, Condition: poly},
	}

	for i := range all {
		withDisabled := append([]Entry(nil), all...)
		withDisabled[i].Enabled = false

		omitted := make([]Entry, 0, len(all)-1)
		omitted = append(omitted, all[:i]...)
		omitted = append(omitted, all[i+1:]...)

		got := Compile(withDisabled).Fragments()
		want := Compile(omitted).Fragments()
		if !reflect.DeepEqual(got, want) {
			t.Errorf("disabling entry %d: got %#v, want %#v", i, got, want)
		}
	}
}

func TestCompile_PreservesOrder(t *testing.T) {
	a := mustTerm(t, "collection_id", "c1")
	b := mustTerm(t, "site_code", "NIWO")
	c := Compile([]Entry{{Enabled: true, Condition: a}, {Enabled: true, Condition: b}})

	frags := c.Fragments()
	if len(frags) != 2 {
		t.Fatalf("fragments = %d, want 2", len(frags))
	}
	if frags[0].(Term).Field != "collection_id" || frags[1].(Term).Field != "site_code" {
		t.Errorf("order not preserved: %#v", frags)
	}
}

func TestCompile_IncompletePolygonContributesNothing(t *testing.T) {
	poly := mustPolygon(t, geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 1, Lon: 1})
	c := Compile([]Entry{{Enabled: true, Condition: poly}})
	if !c.IsMatchAll() {
		t.Errorf("expected match-all, got %#v", c.Fragments())
	}
}

func TestCompile_EmptyTermContributesNothing(t *testing.T) {
	c := Compile([]Entry{{Enabled: true, Condition: mustTerm(t, "camera_model", " ", "")}})
	if !c.IsMatchAll() {
		t.Error("blank term values should contribute nothing")
	}
}

func TestCompile_NewIdentityEachTime(t *testing.T) {
	l := NewList()
	l.Add(mustTerm(t, "camera_model", "x"))
	a, b := l.Compile(), l.Compile()
	if a == b {
		t.Error("each compile must return a fresh pointer")
	}
	if !reflect.DeepEqual(a.Fragments(), b.Fragments()) {
		t.Error("same list should compile to equal fragments")
	}
}

func TestCompiled_WithDoesNotMutate(t *testing.T) {
	base := Compile([]Entry{{Enabled: true, Condition: mustTerm(t, "camera_model", "x")}})
	ext := base.With(Box{LatField: "lat", LonField: "lon", Box: geo.NewBoundingBox(1, 0, 0, 1)})
	if len(base.Fragments()) != 1 || len(ext.Fragments()) != 2 {
		t.Errorf("base=%d ext=%d", len(base.Fragments()), len(ext.Fragments()))
	}
}

func TestList_Operations(t *testing.T) {
	l := NewList()
	id := l.Add(mustPolygon(t, geo.Point{Lat: 0, Lon: 0}))

	if err := l.AppendVertex(id, geo.Point{Lat: 0, Lon: 1}); err != nil {
		t.Fatal(err)
	}
	if !l.Compile().IsMatchAll() {
		t.Error("two-vertex polygon should not constrain")
	}
	if err := l.AppendVertex(id, geo.Point{Lat: 1, Lon: 1}); err != nil {
		t.Fatal(err)
	}
	if l.Compile().IsMatchAll() {
		t.Error("three-vertex polygon should constrain")
	}

	if err := l.SetEnabled(id, false); err != nil {
		t.Fatal(err)
	}
	if !l.Compile().IsMatchAll() {
		t.Error("disabled polygon should not constrain")
	}

	if err := l.Remove(id); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 0 {
		t.Errorf("len = %d, want 0", l.Len())
	}
	if err := l.Remove(id); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList_AppendVertexOnTerm(t *testing.T) {
	l := NewList()
	id := l.Add(mustTerm(t, "camera_model", "x"))
	if err := l.AppendVertex(id, geo.Point{}); !errors.Is(err, domain.ErrInvalidCondition) {
		t.Errorf("expected ErrInvalidCondition, got %v", err)
	}
}

func TestNewDateInterval(t *testing.T) {
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if _, err := NewDateInterval("taken_at", to, from); !errors.Is(err, domain.ErrInvalidCondition) {
		t.Errorf("expected ErrInvalidCondition, got %v", err)
	}

	open, err := NewDateInterval("taken_at", time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := open.Fragment(); ok {
		t.Error("fully open interval should contribute nothing")
	}

	half, _ := NewDateInterval("taken_at", from, time.Time{})
	f, ok := half.Fragment()
	if !ok {
		t.Fatal("half-open interval should contribute")
	}
	if iv := f.(Interval); !iv.From.Equal(from) || !iv.To.IsZero() {
		t.Errorf("interval = %+v", iv)
	}
}

func TestBounds(t *testing.T) {
	if _, err := NewBounds(nil, nil, nil, nil); err == nil {
		t.Error("expected error for empty bounds")
	}
	if _, err := NewBounds(f64(1), f64(1), nil, nil); err == nil {
		t.Error("expected error for gt+gte")
	}

	b, err := NewBounds(f64(1), nil, nil, f64(5))
	if err != nil {
		t.Fatal(err)
	}
	for v, want := range map[float64]bool{1: false, 1.5: true, 5: true, 5.1: false} {
		if got := b.Includes(v); got != want {
			t.Errorf("Includes(%g) = %v, want %v", v, got, want)
		}
	}
}

func TestNewCondition_MalformedField(t *testing.T) {
	for _, field := range []string{"site_code:{NIWO} | @collection_id", "a b", "@lat", "1st"} {
		if _, err := NewTerm(field, "c1"); !errors.Is(err, domain.ErrInvalidCondition) {
			t.Errorf("NewTerm(%q): %v", field, err)
		}
		if _, err := NewRange(field, Between(0, 1)); !errors.Is(err, domain.ErrInvalidCondition) {
			t.Errorf("NewRange(%q): %v", field, err)
		}
		if _, err := NewPolygon(field); !errors.Is(err, domain.ErrInvalidCondition) {
			t.Errorf("NewPolygon(%q): %v", field, err)
		}
		if _, err := NewDateInterval(field, time.Time{}, time.Time{}); !errors.Is(err, domain.ErrInvalidCondition) {
			t.Errorf("NewDateInterval(%q): %v", field, err)
		}
	}
}

func TestSchema_Check(t *testing.T) {
	s := Schema{
		"site_code": {KindTerm},
		"altitude":  {KindRange},
		"taken_at":  {KindRange, KindDateInterval},
		"position":  {KindPolygon},
	}
	rng, _ := NewRange("altitude", Between(0, 1))
	badRange, _ := NewRange("site_code", Between(0, 1))
	date, _ := NewDateInterval("taken_at", time.Unix(0, 0), time.Time{})
	badDate, _ := NewDateInterval("altitude", time.Unix(0, 0), time.Time{})

	tests := []struct {
		name string
		cond Condition
		ok   bool
	}{
		{"term on tag", mustTerm(t, "site_code", "NIWO"), true},
		{"range on numeric", rng, true},
		{"date on timestamp", date, true},
		{"polygon on geoshape", mustPolygon(t), true},
		{"unknown field", mustTerm(t, "no_such_field", "x"), false},
		{"term on numeric", mustTerm(t, "altitude", "1"), false},
		{"range on tag", badRange, false},
		{"date on plain numeric", badDate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Check(tt.cond)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrInvalidCondition) {
				t.Fatalf("err = %v, want ErrInvalidCondition", err)
			}
		})
	}

	entries := []Entry{{ID: "a", Enabled: false, Condition: mustTerm(t, "no_such_field", "x")}}
	if err := s.CheckEntries(entries); !errors.Is(err, domain.ErrInvalidCondition) {
		t.Fatalf("disabled entry not checked: %v", err)
	}
}
