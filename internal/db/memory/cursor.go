package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/geodex/internal/db"
)

type cursorState struct {
	index      string
	entries    []db.SearchEntry
	pos        int
	pageSize   int
	maxIdle    time.Duration
	lastAccess time.Time
}

// OpenCursor snapshots every match and returns the first page.
func (s *Store) OpenCursor(_ context.Context, q *db.CursorQuery) (*db.CursorPage, error) {
	if q.PageSize <= 0 {
		return nil, &db.Error{Op: db.OpAggregate, Err: fmt.Errorf("page size must be positive")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := s.index(q.IndexName)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	m, err := newMatcher(def, q.Query)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}

	var entries []db.SearchEntry
	for _, key := range s.indexedKeys(def) {
		doc := s.docs[key]
		if !m.match(doc) {
			continue
		}
		fields := map[string]string{}
		if len(q.LoadFields) > 0 {
			fields = m.fields(doc, q.LoadFields)
		}
		entries = append(entries, db.SearchEntry{Key: key, Fields: fields})
	}

	s.nextCursor++
	st := &cursorState{
		index:    q.IndexName,
		entries:  entries,
		pageSize: q.PageSize,
		maxIdle:  q.MaxIdle,
	}
	id := s.nextCursor
	s.cursors[id] = st
	return s.readLocked(id, st, q.PageSize), nil
}

// ReadCursor returns the next page; an idle-expired or unknown cursor is not found.
func (s *Store) ReadCursor(_ context.Context, index string, id int64, count int) (*db.CursorPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.liveCursor(index, id)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = st.pageSize
	}
	return s.readLocked(id, st, count), nil
}

// DeleteCursor releases a cursor.
func (s *Store) DeleteCursor(_ context.Context, index string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.liveCursor(index, id); err != nil {
		return err
	}
	delete(s.cursors, id)
	return nil
}

// OpenCursors returns the number of cursors still held.
func (s *Store) OpenCursors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cursors)
}

func (s *Store) liveCursor(index string, id int64) (*cursorState, error) {
	st, ok := s.cursors[id]
	if !ok || st.index != index {
		return nil, db.ErrCursorNotFound
	}
	if st.maxIdle > 0 && s.now().Sub(st.lastAccess) > st.maxIdle {
		delete(s.cursors, id)
		return nil, db.ErrCursorNotFound
	}
	return st, nil
}

// readLocked advances st by up to count entries; an exhausted cursor is dropped and reports id 0.
func (s *Store) readLocked(id int64, st *cursorState, count int) *db.CursorPage {
	end := min(st.pos+count, len(st.entries))
	page := &db.CursorPage{CursorID: id, Entries: st.entries[st.pos:end]}
	st.pos = end
	st.lastAccess = s.now()
	if st.pos >= len(st.entries) {
		delete(s.cursors, id)
		page.CursorID = 0
	}
	return page
}
