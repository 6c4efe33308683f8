package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geodex/internal/db"
)

// Reducer output aliases of the geo aggregation pipeline.
const (
	aggCell      = "cell"
	aggCount     = "count"
	aggCenterLat = "center_lat"
	aggCenterLon = "center_lon"
	aggSamples   = "sample_ids"
)

// AggregateGeo groups matching documents by a geohash prefix via FT.AGGREGATE:
// APPLY substr → GROUPBY cell → REDUCE COUNT, AVG lat/lon, RANDOM_SAMPLE ids.
func (s *Store) AggregateGeo(ctx context.Context, q *db.GeoAggregateQuery) ([]db.GeoCell, error) {
	args, err := buildAggregateArgs(q)
	if err != nil {
		return nil, err
	}

	raw, err := s.do(ctx, s.ft("FT.AGGREGATE", args...)).ToArray()
	if err != nil {
		return nil, wrapQueryErr(db.OpAggregate, err)
	}
	return parseGeoCells(raw), nil
}

func buildAggregateArgs(q *db.GeoAggregateQuery) ([]string, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Precision <= 0 {
		return nil, fmt.Errorf("precision must be positive")
	}
	qs, params, err := buildQuery(q.Query)
	if err != nil {
		return nil, err
	}

	load := []string{"@" + q.GeohashField, "@" + q.LatField, "@" + q.LonField}
	if q.SampleSize > 0 {
		load = append(load, "@"+q.SampleField)
	}

	args := []string{q.IndexName, qs, "LOAD", strconv.Itoa(len(load))}
	args = append(args, load...)
	args = append(args,
		"APPLY", fmt.Sprintf("substr(@%s, 0, %d)", q.GeohashField, q.Precision), "AS", aggCell,
		"GROUPBY", "1", "@"+aggCell,
		"REDUCE", "COUNT", "0", "AS", aggCount,
		"REDUCE", "AVG", "1", "@"+q.LatField, "AS", aggCenterLat,
		"REDUCE", "AVG", "1", "@"+q.LonField, "AS", aggCenterLon,
	)
	if q.SampleSize > 0 {
		args = append(args,
			"REDUCE", "RANDOM_SAMPLE", "2", "@"+q.SampleField, strconv.Itoa(q.SampleSize), "AS", aggSamples,
		)
	}
	if q.MaxCells > 0 {
		args = append(args, "LIMIT", "0", strconv.Itoa(q.MaxCells))
	}

	args = appendParams(args, params)
	return append(args, "DIALECT", dialect), nil
}

// parseGeoCells reads [total, row1, row2, ...] where each row is a flat key/value array.
// Rows without a parseable centroid are skipped.
func parseGeoCells(raw []rueidis.RedisMessage) []db.GeoCell {
	if len(raw) < 2 {
		return nil
	}

	cells := make([]db.GeoCell, 0, len(raw)-1)
	for _, row := range raw[1:] {
		pairs, err := row.ToArray()
		if err != nil {
			continue
		}
		cell, ok := parseGeoCell(pairs)
		if !ok {
			continue
		}
		cells = append(cells, cell)
	}
	return cells
}

func parseGeoCell(pairs []rueidis.RedisMessage) (db.GeoCell, bool) {
	var (
		cell           db.GeoCell
		hasLat, hasLon bool
	)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, err := pairs[j].ToString()
		if err != nil {
			continue
		}
		v := pairs[j+1]
		switch name {
		case aggCell:
			cell.Cell, _ = v.ToString()
		case aggCount:
			cell.Count = parseInt(v)
		case aggCenterLat:
			cell.CenterLat, hasLat = parseFloat(v)
		case aggCenterLon:
			cell.CenterLon, hasLon = parseFloat(v)
		case aggSamples:
			cell.Samples = parseStrings(v)
		}
	}
	return cell, hasLat && hasLon
}

func parseInt(m rueidis.RedisMessage) int64 {
	if n, err := m.AsInt64(); err == nil {
		return n
	}
	if f, ok := parseFloat(m); ok {
		return int64(f)
	}
	return 0
}

func parseFloat(m rueidis.RedisMessage) (float64, bool) {
	s, err := m.ToString()
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(unwrapValue(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseStrings(m rueidis.RedisMessage) []string {
	arr, err := m.ToArray()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, err := e.ToString(); err == nil {
			out = append(out, unwrapValue(s))
		}
	}
	return out
}
