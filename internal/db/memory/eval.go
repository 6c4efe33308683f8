package memory

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// matcher evaluates compiled fragments against documents of one index.
type matcher struct {
	def       *db.IndexDefinition
	fragments []query.Fragment
}

func newMatcher(def *db.IndexDefinition, c *query.Compiled) (*matcher, error) {
	m := &matcher{def: def, fragments: c.Fragments()}
	for _, f := range m.fragments {
		if err := m.check(f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// check validates field references and query geometry up front, as the server would.
func (m *matcher) check(f query.Fragment) error {
	var fields []string
	switch t := f.(type) {
	case query.Term:
		fields = []string{t.Field}
	case query.Range:
		fields = []string{t.Field}
	case query.Interval:
		fields = []string{t.Field}
	case query.Box:
		fields = []string{t.LatField, t.LonField}
	case query.Within:
		if !t.Ring.Encloses() {
			return fmt.Errorf("%w: polygon needs %d points", db.ErrInvalidGeometry, geo.MinRingPoints)
		}
		fields = []string{t.Field}
	case query.Intersects:
		if !t.Ring.Encloses() {
			return fmt.Errorf("%w: polygon needs %d points", db.ErrInvalidGeometry, geo.MinRingPoints)
		}
		fields = []string{t.Field}
	case query.Contains:
		if !t.Point.Valid() {
			return fmt.Errorf("%w: point %v out of range", db.ErrInvalidGeometry, t.Point)
		}
		fields = []string{t.Field}
	default:
		return fmt.Errorf("unsupported query fragment %T", f)
	}
	for _, name := range fields {
		if _, ok := m.def.Field(name); !ok {
			return fmt.Errorf("unknown field %q in index %s", name, m.def.Name)
		}
	}
	return nil
}

func (m *matcher) match(doc any) bool {
	for _, f := range m.fragments {
		if !m.matchOne(doc, f) {
			return false
		}
	}
	return true
}

func (m *matcher) matchOne(doc any, f query.Fragment) bool {
	switch t := f.(type) {
	case query.Term:
		return m.matchTerm(doc, t)
	case query.Range:
		v, ok := m.number(doc, t.Field)
		return ok && t.Bounds.Includes(v)
	case query.Interval:
		v, ok := m.number(doc, t.Field)
		if !ok {
			return false
		}
		if !t.From.IsZero() && v < float64(t.From.Unix()) {
			return false
		}
		return t.To.IsZero() || v <= float64(t.To.Unix())
	case query.Box:
		lat, okLat := m.number(doc, t.LatField)
		lon, okLon := m.number(doc, t.LonField)
		return okLat && okLon && t.Box.Contains(geo.Point{Lat: lat, Lon: lon})
	case query.Within:
		shape, ok := m.shape(doc, t.Field)
		return ok && ringWithin(shape, t.Ring)
	case query.Contains:
		shape, ok := m.shape(doc, t.Field)
		if !ok {
			return false
		}
		if len(shape) == 1 {
			return shape[0] == t.Point
		}
		return shape.Contains(t.Point)
	case query.Intersects:
		shape, ok := m.shape(doc, t.Field)
		return ok && ringsIntersect(shape, t.Ring)
	}
	return false
}

func (m *matcher) matchTerm(doc any, t query.Term) bool {
	f, _ := m.def.Field(t.Field)
	for _, have := range m.strings(doc, t.Field) {
		for _, want := range t.Values {
			if f.TagCaseSensitive && have == want {
				return true
			}
			if !f.TagCaseSensitive && strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// value resolves an index field (by alias) to its raw JSON value.
func (m *matcher) value(doc any, key string) (any, bool) {
	f, ok := m.def.Field(key)
	if !ok {
		return nil, false
	}
	vals := evalPath(doc, f.Name)
	if len(vals) == 0 || vals[0] == nil {
		return nil, false
	}
	return vals[0], true
}

func (m *matcher) number(doc any, key string) (float64, bool) {
	v, ok := m.value(doc, key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func (m *matcher) strings(doc any, key string) []string {
	v, ok := m.value(doc, key)
	if !ok {
		return nil
	}
	f, _ := m.def.Field(key)
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, toString(e))
		}
		return out
	case string:
		if f.TagSeparator != "" {
			return strings.Split(t, f.TagSeparator)
		}
		return []string{t}
	default:
		return []string{toString(t)}
	}
}

func (m *matcher) shape(doc any, key string) (geo.Ring, bool) {
	v, ok := m.value(doc, key)
	if !ok {
		return nil, false
	}
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	ring, err := geo.ParseWKT(s)
	if err != nil {
		return nil, false
	}
	return ring, true
}

// fields renders the requested index fields as strings, the way FT.SEARCH returns them.
func (m *matcher) fields(doc any, keys []string) map[string]string {
	if len(keys) == 0 {
		keys = make([]string, 0, len(m.def.Fields))
		for i := range m.def.Fields {
			keys = append(keys, m.def.Fields[i].Key())
		}
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.value(doc, k); ok {
			out[k] = toString(v)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// ringWithin reports whether every vertex of shape lies inside ring.
func ringWithin(shape, ring geo.Ring) bool {
	if len(shape) == 0 {
		return false
	}
	for _, p := range shape {
		if !ring.Contains(p) {
			return false
		}
	}
	return true
}

// ringsIntersect reports whether two outlines share any point.
func ringsIntersect(a, b geo.Ring) bool {
	if len(a) == 1 {
		return b.Contains(a[0])
	}
	for _, p := range a {
		if b.Contains(p) {
			return true
		}
	}
	for _, p := range b {
		if a.Contains(p) {
			return true
		}
	}
	ca, cb := a.Closed(), b.Closed()
	for i := 1; i < len(ca); i++ {
		for j := 1; j < len(cb); j++ {
			if segmentsCross(ca[i-1], ca[i], cb[j-1], cb[j]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(p1, p2, q1, q2 geo.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orient(a, b, c geo.Point) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}
