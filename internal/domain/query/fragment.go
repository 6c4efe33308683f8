package query

import (
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

// Fragment is one backend-neutral predicate of a compiled query.
// Backends switch on the concrete type to render or evaluate it.
type Fragment interface {
	fragment()
}

// Term matches documents whose tag field equals any of Values.
type Term struct {
	Field  string
	Values []string
}

// Range matches documents whose numeric field lies within Bounds.
type Range struct {
	Field  string
	Bounds Bounds
}

// Interval matches documents whose timestamp field lies in [From, To].
// A zero From or To leaves that side open.
type Interval struct {
	Field string
	From  time.Time
	To    time.Time
}

// Within matches documents whose geoshape field lies inside Ring.
type Within struct {
	Field string
	Ring  geo.Ring
}

// Contains matches documents whose geoshape field contains Point.
type Contains struct {
	Field string
	Point geo.Point
}

// Intersects matches documents whose geoshape field intersects Ring.
type Intersects struct {
	Field string
	Ring  geo.Ring
}

// Box matches documents whose numeric lat/lon fields fall inside Box.
type Box struct {
	LatField string
	LonField string
	Box      geo.BoundingBox
}

func (Term) fragment()       {}
func (Range) fragment()      {}
func (Interval) fragment()   {}
func (Within) fragment()     {}
func (Contains) fragment()   {}
func (Intersects) fragment() {}
func (Box) fragment()        {}
