// Package memory is an in-process db.Store. It evaluates the same query
// fragments, aggregations and cursors as the Redis store, without a server.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/geodex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

var errClosed = errors.New("memory store closed")

// defaultLimit mirrors the server default page of FT.SEARCH.
const defaultLimit = 10

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for cursor idle expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps JSON documents, index definitions and open cursors in memory.
type Store struct {
	mu         sync.RWMutex
	docs       map[string]any
	indexes    map[string]*db.IndexDefinition
	cursors    map[int64]*cursorState
	nextCursor int64
	closed     bool
	now        func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		docs:    make(map[string]any),
		indexes: make(map[string]*db.IndexDefinition),
		cursors: make(map[int64]*cursorState),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports an error once the store is closed.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

// Close marks the store closed. Data is kept for inspection.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WaitForReady returns immediately; an in-process store is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// indexedKeys returns the sorted keys covered by def. Callers hold s.mu.
func (s *Store) indexedKeys(def *db.IndexDefinition) []string {
	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		if hasPrefix(k, def.Prefixes) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func hasPrefix(key string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func (s *Store) index(name string) (*db.IndexDefinition, error) {
	def, ok := s.indexes[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	return def, nil
}
