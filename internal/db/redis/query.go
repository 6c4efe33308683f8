package redis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// dialect 3 is required for GEOSHAPE predicates.
const dialect = "3"

// queryBuilder renders compiled fragments into an FT query string plus PARAMS.
type queryBuilder struct {
	params []string // name, value pairs
}

// buildQuery renders c as a space-joined (AND) query. A match-all query renders as "*".
func buildQuery(c *query.Compiled) (string, []string, error) {
	if c.IsMatchAll() {
		return "*", nil, nil
	}
	qb := &queryBuilder{}
	frags := c.Fragments()
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		s, err := qb.fragment(f)
		if err != nil {
			return "", nil, err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "*", nil, nil
	}
	return strings.Join(parts, " "), qb.params, nil
}

func (qb *queryBuilder) param(value string) string {
	name := "p" + strconv.Itoa(len(qb.params)/2)
	qb.params = append(qb.params, name, value)
	return "$" + name
}

func (qb *queryBuilder) fragment(f query.Fragment) (string, error) {
	switch t := f.(type) {
	case query.Term:
		return buildTagFilter(t.Field, t.Values), nil
	case query.Range:
		return buildNumericFilter(t.Field, t.Bounds), nil
	case query.Interval:
		return buildIntervalFilter(t.Field, t.From, t.To), nil
	case query.Box:
		return buildBoxFilter(t), nil
	case query.Within:
		return qb.shape(t.Field, "WITHIN", t.Ring)
	case query.Intersects:
		return qb.shape(t.Field, "INTERSECTS", t.Ring)
	case query.Contains:
		wkt, err := geo.PointWKT(t.Point)
		if err != nil {
			return "", fmt.Errorf("%w: %w", db.ErrInvalidGeometry, err)
		}
		return fmt.Sprintf("@%s:[CONTAINS %s]", t.Field, qb.param(wkt)), nil
	default:
		return "", fmt.Errorf("unsupported query fragment %T", f)
	}
}

func (qb *queryBuilder) shape(field, op string, ring geo.Ring) (string, error) {
	wkt, err := ring.WKT()
	if err != nil {
		return "", fmt.Errorf("%w: %w", db.ErrInvalidGeometry, err)
	}
	return fmt.Sprintf("@%s:[%s %s]", field, op, qb.param(wkt)), nil
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, b query.Bounds) string {
	minBound := "-inf"
	maxBound := "+inf"

	if b.GT() != nil {
		minBound = "(" + formatFloat(*b.GT())
	} else if b.GTE() != nil {
		minBound = formatFloat(*b.GTE())
	}

	if b.LT() != nil {
		maxBound = "(" + formatFloat(*b.LT())
	} else if b.LTE() != nil {
		maxBound = formatFloat(*b.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

func buildIntervalFilter(key string, from, to time.Time) string {
	minBound, maxBound := "-inf", "+inf"
	if !from.IsZero() {
		minBound = strconv.FormatInt(from.Unix(), 10)
	}
	if !to.IsZero() {
		maxBound = strconv.FormatInt(to.Unix(), 10)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// buildBoxFilter splits the longitude range in two when the box crosses the antimeridian.
func buildBoxFilter(b query.Box) string {
	box := b.Box
	lat := fmt.Sprintf("@%s:[%s %s]", b.LatField, formatFloat(box.Bottom()), formatFloat(box.Top()))
	if !box.CrossesAntimeridian() {
		lon := fmt.Sprintf("@%s:[%s %s]", b.LonField, formatFloat(box.Left()), formatFloat(box.Right()))
		return lat + " " + lon
	}
	east := fmt.Sprintf("@%s:[%s %s]", b.LonField, formatFloat(box.Left()), formatFloat(geo.MaxLon))
	west := fmt.Sprintf("@%s:[%s %s]", b.LonField, formatFloat(geo.MinLon), formatFloat(box.Right()))
	return fmt.Sprintf("%s (%s | %s)", lat, east, west)
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func appendParams(args, params []string) []string {
	if len(params) == 0 {
		return args
	}
	args = append(args, "PARAMS", strconv.Itoa(len(params)))
	return append(args, params...)
}

// unwrapValue strips the single-element JSON array that dialect 3 wraps JSON values in.
func unwrapValue(v string) string {
	if len(v) < 2 || v[0] != '[' {
		return v
	}
	var arr []any
	if err := json.Unmarshal([]byte(v), &arr); err != nil || len(arr) != 1 {
		return v
	}
	switch x := arr[0].(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return v
		}
		return string(b)
	}
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)
