package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
)

type cellAcc struct {
	count   int64
	sumLat  float64
	sumLon  float64
	samples []string
}

// AggregateGeo groups matching documents by a prefix of their stored geohash.
// Cells come back in geohash order; samples are the first ids in key order.
func (s *Store) AggregateGeo(_ context.Context, q *db.GeoAggregateQuery) ([]db.GeoCell, error) {
	if q.Precision <= 0 {
		return nil, &db.Error{Op: db.OpAggregate, Err: fmt.Errorf("precision must be positive")}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	def, err := s.index(q.IndexName)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	m, err := newMatcher(def, q.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	groups := make(map[string]*cellAcc)
	for _, key := range s.indexedKeys(def) {
		doc := s.docs[key]
		if !m.match(doc) {
			continue
		}
		lat, okLat := m.number(doc, q.LatField)
		lon, okLon := m.number(doc, q.LonField)
		hashes := m.strings(doc, q.GeohashField)
		if !okLat || !okLon || len(hashes) == 0 {
			continue
		}

		cell := geo.Cell(hashes[0], q.Precision)
		acc, ok := groups[cell]
		if !ok {
			acc = &cellAcc{}
			groups[cell] = acc
		}
		acc.count++
		acc.sumLat += lat
		acc.sumLon += lon
		if len(acc.samples) < q.SampleSize {
			if ids := m.strings(doc, q.SampleField); len(ids) > 0 {
				acc.samples = append(acc.samples, ids[0])
			}
		}
	}

	cells := make([]db.GeoCell, 0, len(groups))
	for cell, acc := range groups {
		cells = append(cells, db.GeoCell{
			Cell:      cell,
			Count:     acc.count,
			CenterLat: acc.sumLat / float64(acc.count),
			CenterLon: acc.sumLon / float64(acc.count),
			Samples:   acc.samples,
		})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Cell < cells[j].Cell })
	if q.MaxCells > 0 && len(cells) > q.MaxCells {
		cells = cells[:q.MaxCells]
	}
	return cells, nil
}
