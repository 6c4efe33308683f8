package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/geodex/internal/db"
)

// JSONSet stores a document. Only the root path is supported.
func (s *Store) JSONSet(_ context.Context, key, path string, data []byte) error {
	doc, err := decodeRoot(path, data)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", key, err)}
	}
	s.mu.Lock()
	s.docs[key] = doc
	s.mu.Unlock()
	return nil
}

// JSONSetMulti stores several documents atomically with respect to readers.
func (s *Store) JSONSetMulti(_ context.Context, items []db.JSONSetItem) error {
	decoded := make([]any, len(items))
	for i, item := range items {
		doc, err := decodeRoot(item.Path, item.Data)
		if err != nil {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", item.Key, err)}
		}
		decoded[i] = doc
	}
	s.mu.Lock()
	for i, item := range items {
		s.docs[item.Key] = decoded[i]
	}
	s.mu.Unlock()
	return nil
}

// JSONGet returns a document, or the values at paths using RedisJSON reply shapes:
// one path yields an array of matches, several paths an object keyed by path.
func (s *Store) JSONGet(_ context.Context, key string, paths ...string) ([]byte, error) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	out, err := project(doc, paths)
	if err != nil {
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	return out, nil
}

// JSONGetMulti returns projections for many keys; missing keys yield nil.
func (s *Store) JSONGetMulti(ctx context.Context, keys []string, paths ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([][]byte, len(keys))
	for i, key := range keys {
		b, err := s.JSONGet(ctx, key, paths...)
		if errors.Is(err, db.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// Del deletes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}

// DelMulti deletes keys and returns how many existed.
func (s *Store) DelMulti(_ context.Context, keys []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if _, ok := s.docs[k]; ok {
			delete(s.docs, k)
			n++
		}
	}
	return n, nil
}

func decodeRoot(path string, data []byte) (any, error) {
	if path != "$" && path != "." {
		return nil, fmt.Errorf("unsupported path %q", path)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

func project(doc any, paths []string) ([]byte, error) {
	switch len(paths) {
	case 0:
		return json.Marshal(doc)
	case 1:
		if paths[0] == "." {
			return json.Marshal(doc)
		}
		return json.Marshal(evalPath(doc, paths[0]))
	}
	m := make(map[string][]any, len(paths))
	for _, p := range paths {
		m[p] = evalPath(doc, p)
	}
	return json.Marshal(m)
}

// evalPath resolves a dotted JSONPath ("$", "$.a.b") to its matches.
func evalPath(doc any, path string) []any {
	rest, ok := strings.CutPrefix(path, "$")
	if !ok {
		return []any{}
	}
	cur := doc
	for _, part := range strings.Split(strings.TrimPrefix(rest, "."), ".") {
		if part == "" {
			continue
		}
		obj, isObj := cur.(map[string]any)
		if !isObj {
			return []any{}
		}
		if cur, ok = obj[part]; !ok {
			return []any{}
		}
	}
	return []any{cur}
}
