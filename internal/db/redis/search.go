package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geodex/internal/db"
)

// Search runs a filtered FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	args, err := buildSearchArgs(q)
	if err != nil {
		return nil, err
	}

	raw, err := s.do(ctx, s.ft("FT.SEARCH", args...)).ToArray()
	if err != nil {
		return nil, wrapQueryErr(db.OpSearch, err)
	}
	return parseListResult(raw)
}

// MultiSearch pipelines independent FT.SEARCH commands in one DoMulti round-trip.
// Results are parallel to qs.
func (s *Store) MultiSearch(ctx context.Context, qs []*db.SearchQuery) ([]*db.SearchResult, error) {
	if len(qs) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(qs))
	for i, q := range qs {
		args, err := buildSearchArgs(q)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		cmds[i] = s.ft("FT.SEARCH", args...)
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]*db.SearchResult, len(results))
	for i, res := range results {
		raw, err := res.ToArray()
		if err != nil {
			return nil, wrapQueryErr(db.OpSearch, fmt.Errorf("query %d: %w", i, err))
		}
		if out[i], err = parseListResult(raw); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
	}
	return out, nil
}

func buildSearchArgs(q *db.SearchQuery) ([]string, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	qs, params, err := buildQuery(q.Query)
	if err != nil {
		return nil, err
	}

	args := []string{q.IndexName, qs}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	if q.Limit > 0 {
		args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit))
	}

	args = appendParams(args, params)
	return append(args, "DIALECT", dialect), nil
}

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = unwrapValue(value)
	}
	return m
}
