package mapview

import (
	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
)

// Diff reports the markers created and discarded by one reconciliation.
// Both are nil when the marker count did not change.
type Diff struct {
	Added   []*Marker
	Removed []*Marker
}

// Reconciler maps bucket results onto a reusable set of markers. Grown sets gain
// markers at the tail, shrunk sets lose tail markers, and every remaining marker is
// reassigned positionally. It is confined to the session loop.
type Reconciler struct {
	comp       *Compositor[Node]
	markers    []*Marker
	selected   int
	nextID     int
	generation uint64
}

// NewReconciler creates a reconciler that mirrors markers into comp.
func NewReconciler(comp *Compositor[Node]) *Reconciler {
	return &Reconciler{comp: comp, selected: -1}
}

// Apply reconciles the markers against buckets. When the compositor does not
// hold exactly the reconciler's markers, nothing is touched and
// ErrMarkerCountMismatch reports how many markers would have been drawn.
func (r *Reconciler) Apply(buckets []bucket.GeoBucket) (Diff, error) {
	want := len(buckets)
	if drawn := r.comp.Count(LayerMarkers); drawn != len(r.markers) {
		return Diff{}, domain.NewCountMismatch(domain.ErrMarkerCountMismatch, want, drawn-len(r.markers)+want)
	}

	var diff Diff
	for len(r.markers) < want {
		r.nextID++
		m := &Marker{id: r.nextID}
		r.markers = append(r.markers, m)
		r.comp.Add(m, LayerMarkers)
		diff.Added = append(diff.Added, m)
	}
	for len(r.markers) > want {
		last := len(r.markers) - 1
		m := r.markers[last]
		r.markers[last] = nil
		r.markers = r.markers[:last]
		r.comp.Remove(m)
		diff.Removed = append(diff.Removed, m)
	}

	for i := range buckets {
		m := r.markers[i]
		m.bucket = buckets[i]
		m.position = buckets[i].Center()
		m.selected = false
	}
	r.selected = -1
	r.generation++
	return diff, nil
}

// Select makes marker i the only selected marker. changed is false when i was
// already selected, so callers can skip a refetch.
func (r *Reconciler) Select(i int) (m *Marker, changed bool, err error) {
	if i < 0 || i >= len(r.markers) {
		return nil, false, domain.ErrNotFound
	}
	if i == r.selected {
		return r.markers[i], false, nil
	}
	r.ClearSelection()
	r.selected = i
	r.markers[i].selected = true
	return r.markers[i], true, nil
}

// ClearSelection deselects all markers.
func (r *Reconciler) ClearSelection() {
	if r.selected >= 0 && r.selected < len(r.markers) {
		r.markers[r.selected].selected = false
	}
	r.selected = -1
}

// Selected returns the selected marker index, or -1.
func (r *Reconciler) Selected() int { return r.selected }

// Markers returns the current markers in bucket order.
func (r *Reconciler) Markers() []*Marker { return append([]*Marker(nil), r.markers...) }

// Len returns the number of markers.
func (r *Reconciler) Len() int { return len(r.markers) }

// Generation increases with every successful Apply.
func (r *Reconciler) Generation() uint64 { return r.generation }
