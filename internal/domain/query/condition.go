package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

// MaxTermValues caps the any-of list of a single term condition.
const MaxTermValues = 64

// Kind identifies a condition variant.
type Kind string

// Condition kinds.
const (
	KindTerm         Kind = "term"
	KindRange        Kind = "range"
	KindPolygon      Kind = "polygon"
	KindDateInterval Kind = "date_interval"
)

// Condition is a user-built filter. Fragment reports false when the
// condition is incomplete and must not constrain the query.
type Condition interface {
	Kind() Kind
	Field() string
	Fragment() (Fragment, bool)
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkField rejects names that are not plain index field aliases.
func checkField(field string) error {
	if field == "" {
		return fmt.Errorf("%w: field is required", domain.ErrInvalidCondition)
	}
	if !fieldName.MatchString(field) {
		return fmt.Errorf("%w: malformed field name %q", domain.ErrInvalidCondition, field)
	}
	return nil
}

// TermCondition matches any of a set of values on one field.
type TermCondition struct {
	field  string
	values []string
}

// NewTerm creates a term condition. Blank values are dropped.
func NewTerm(field string, values ...string) (TermCondition, error) {
	if err := checkField(field); err != nil {
		return TermCondition{}, err
	}
	if len(values) > MaxTermValues {
		return TermCondition{}, fmt.Errorf("%w: too many values (max %d)", domain.ErrInvalidCondition, MaxTermValues)
	}
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return TermCondition{field: field, values: kept}, nil
}

// Kind returns KindTerm.
func (TermCondition) Kind() Kind { return KindTerm }

// Field returns the tag field name.
func (c TermCondition) Field() string { return c.field }

// Values returns a copy of the accepted values.
func (c TermCondition) Values() []string { return append([]string(nil), c.values...) }

// Fragment returns a Term fragment; an empty value list contributes nothing.
func (c TermCondition) Fragment() (Fragment, bool) {
	if len(c.values) == 0 {
		return nil, false
	}
	return Term{Field: c.field, Values: c.Values()}, true
}

// RangeCondition bounds a numeric field.
type RangeCondition struct {
	field  string
	bounds Bounds
}

// NewRange creates a numeric range condition.
func NewRange(field string, b Bounds) (RangeCondition, error) {
	if err := checkField(field); err != nil {
		return RangeCondition{}, err
	}
	return RangeCondition{field: field, bounds: b}, nil
}

// Kind returns KindRange.
func (RangeCondition) Kind() Kind { return KindRange }

// Field returns the numeric field name.
func (c RangeCondition) Field() string { return c.field }

// Bounds returns the interval.
func (c RangeCondition) Bounds() Bounds { return c.bounds }

// Fragment returns a Range fragment.
func (c RangeCondition) Fragment() (Fragment, bool) {
	return Range{Field: c.field, Bounds: c.bounds}, true
}

// PolygonCondition keeps documents whose position lies inside a user-drawn polygon.
// Vertices are added one at a time, so fewer than three points is a valid draft state.
type PolygonCondition struct {
	field string
	ring  geo.Ring
}

// NewPolygon creates a polygon condition from its vertices, clamped into range.
func NewPolygon(field string, points ...geo.Point) (PolygonCondition, error) {
	if err := checkField(field); err != nil {
		return PolygonCondition{}, err
	}
	ring := make(geo.Ring, len(points))
	for i, p := range points {
		ring[i] = p.Clamped()
	}
	return PolygonCondition{field: field, ring: ring}, nil
}

// Kind returns KindPolygon.
func (PolygonCondition) Kind() Kind { return KindPolygon }

// Field returns the geoshape field name.
func (c PolygonCondition) Field() string { return c.field }

// Ring returns a copy of the vertices.
func (c PolygonCondition) Ring() geo.Ring { return append(geo.Ring(nil), c.ring...) }

// WithVertex returns a copy of c with p appended.
func (c PolygonCondition) WithVertex(p geo.Point) PolygonCondition {
	ring := make(geo.Ring, 0, len(c.ring)+1)
	ring = append(ring, c.ring...)
	ring = append(ring, p.Clamped())
	return PolygonCondition{field: c.field, ring: ring}
}

// Fragment returns a Within fragment once the polygon encloses an area.
func (c PolygonCondition) Fragment() (Fragment, bool) {
	if !c.ring.Encloses() {
		return nil, false
	}
	return Within{Field: c.field, Ring: c.Ring()}, true
}

// DateIntervalCondition bounds a capture timestamp.
type DateIntervalCondition struct {
	field string
	from  time.Time
	to    time.Time
}

// NewDateInterval creates a date interval condition. Either end may be zero.
func NewDateInterval(field string, from, to time.Time) (DateIntervalCondition, error) {
	if err := checkField(field); err != nil {
		return DateIntervalCondition{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return DateIntervalCondition{}, fmt.Errorf("%w: interval ends before it starts", domain.ErrInvalidCondition)
	}
	return DateIntervalCondition{field: field, from: from.UTC(), to: to.UTC()}, nil
}

// Kind returns KindDateInterval.
func (DateIntervalCondition) Kind() Kind { return KindDateInterval }

// Field returns the timestamp field name.
func (c DateIntervalCondition) Field() string { return c.field }

// From returns the inclusive start.
func (c DateIntervalCondition) From() time.Time { return c.from }

// To returns the inclusive end.
func (c DateIntervalCondition) To() time.Time { return c.to }

// Fragment returns an Interval fragment; an interval open on both ends contributes nothing.
func (c DateIntervalCondition) Fragment() (Fragment, bool) {
	if c.from.IsZero() && c.to.IsZero() {
		return nil, false
	}
	return Interval{Field: c.field, From: c.from, To: c.to}, true
}
