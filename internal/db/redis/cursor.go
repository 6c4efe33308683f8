package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geodex/internal/db"
)

const keyField = "__key"

// OpenCursor starts FT.AGGREGATE ... WITHCURSOR and returns the first page.
func (s *Store) OpenCursor(ctx context.Context, q *db.CursorQuery) (*db.CursorPage, error) {
	args, err := buildCursorArgs(q)
	if err != nil {
		return nil, err
	}

	raw, err := s.do(ctx, s.ft("FT.AGGREGATE", args...)).ToArray()
	if err != nil {
		return nil, wrapQueryErr(db.OpAggregate, err)
	}
	return parseCursorPage(raw)
}

// ReadCursor reads the next page of an open cursor.
func (s *Store) ReadCursor(ctx context.Context, index string, id int64, count int) (*db.CursorPage, error) {
	args := []string{"READ", index, strconv.FormatInt(id, 10)}
	if count > 0 {
		args = append(args, "COUNT", strconv.Itoa(count))
	}

	raw, err := s.do(ctx, s.ft("FT.CURSOR", args...)).ToArray()
	if err != nil {
		if isRedisErr(err, "cursor not found") {
			return nil, db.ErrCursorNotFound
		}
		return nil, &db.Error{Op: db.OpCursorRead, Err: err}
	}
	return parseCursorPage(raw)
}

// DeleteCursor releases an open cursor.
func (s *Store) DeleteCursor(ctx context.Context, index string, id int64) error {
	err := s.do(ctx, s.ft("FT.CURSOR", "DEL", index, strconv.FormatInt(id, 10))).Error()
	if err != nil {
		if isRedisErr(err, "cursor does not exist") || isRedisErr(err, "cursor not found") {
			return db.ErrCursorNotFound
		}
		return &db.Error{Op: db.OpCursorDel, Err: err}
	}
	return nil
}

func buildCursorArgs(q *db.CursorQuery) ([]string, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive")
	}
	qs, params, err := buildQuery(q.Query)
	if err != nil {
		return nil, err
	}

	load := make([]string, 0, len(q.LoadFields)+1)
	load = append(load, "@"+keyField)
	for _, f := range q.LoadFields {
		load = append(load, "@"+f)
	}

	args := []string{q.IndexName, qs, "LOAD", strconv.Itoa(len(load))}
	args = append(args, load...)
	args = append(args, "WITHCURSOR", "COUNT", strconv.Itoa(q.PageSize))
	if q.MaxIdle > 0 {
		args = append(args, "MAXIDLE", strconv.FormatInt(q.MaxIdle.Milliseconds(), 10))
	}

	args = appendParams(args, params)
	return append(args, "DIALECT", dialect), nil
}

// parseCursorPage reads [[total, row1, ...], cursorID].
func parseCursorPage(raw []rueidis.RedisMessage) (*db.CursorPage, error) {
	if len(raw) != 2 {
		return nil, fmt.Errorf("cursor reply: expected 2 elements, got %d", len(raw))
	}
	id, err := raw[1].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse cursor id: %w", err)
	}
	rows, err := raw[0].ToArray()
	if err != nil {
		return nil, fmt.Errorf("parse cursor rows: %w", err)
	}

	page := &db.CursorPage{CursorID: id}
	if len(rows) < 2 {
		return page, nil
	}
	page.Entries = make([]db.SearchEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		pairs, err := row.ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(pairs)
		key := fields[keyField]
		delete(fields, keyField)
		page.Entries = append(page.Entries, db.SearchEntry{Key: key, Fields: fields})
	}
	return page, nil
}
