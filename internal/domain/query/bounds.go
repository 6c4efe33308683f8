package query

import "fmt"

// Bounds is a numeric interval with optional gt/gte/lt/lte edges.
type Bounds struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewBounds validates and creates Bounds.
// At least one edge is required. gt/gte and lt/lte are mutually exclusive.
func NewBounds(gt, gte, lt, lte *float64) (Bounds, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Bounds{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Bounds{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Bounds{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Bounds{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// Between returns inclusive bounds [lo, hi].
func Between(lo, hi float64) Bounds {
	return Bounds{gte: &lo, lte: &hi}
}

// GT returns the lower exclusive bound.
func (b Bounds) GT() *float64 { return b.gt }

// GTE returns the lower inclusive bound.
func (b Bounds) GTE() *float64 { return b.gte }

// LT returns the upper exclusive bound.
func (b Bounds) LT() *float64 { return b.lt }

// LTE returns the upper inclusive bound.
func (b Bounds) LTE() *float64 { return b.lte }

// Includes reports whether v satisfies every edge.
func (b Bounds) Includes(v float64) bool {
	switch {
	case b.gt != nil && v <= *b.gt:
		return false
	case b.gte != nil && v < *b.gte:
		return false
	case b.lt != nil && v >= *b.lt:
		return false
	case b.lte != nil && v > *b.lte:
		return false
	}
	return true
}
