// Package cursor pages through large result sets with server-side cursors.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/metrics"
)

// store is the consumer interface for cursors (ISP).
type store interface {
	OpenCursor(ctx context.Context, q *db.CursorQuery) (*db.CursorPage, error)
	ReadCursor(ctx context.Context, index string, id int64, count int) (*db.CursorPage, error)
	DeleteCursor(ctx context.Context, index string, id int64) error
}

// Cursor is an open enumeration. The page size is fixed at open time.
type Cursor struct {
	mu        sync.Mutex
	index     string
	id        int64
	pageSize  int
	ttl       time.Duration
	expiresAt time.Time
	closed    bool
}

// PageSize returns the number of entries requested per page.
func (c *Cursor) PageSize() int { return c.pageSize }

// Exhausted reports whether the backend has no more pages.
func (c *Cursor) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id == 0
}

// Page is one batch of entries. It is empty exactly when the cursor is exhausted.
type Page struct {
	Entries []db.SearchEntry
}

// Empty reports whether the page carries no entries.
func (p Page) Empty() bool { return len(p.Entries) == 0 }

// Paginator opens, advances and releases cursors.
type Paginator struct {
	store store
	log   *zap.Logger
	now   func() time.Time
}

// New creates a paginator.
func New(s store, log *zap.Logger) *Paginator {
	return &Paginator{store: s, log: log, now: time.Now}
}

// Open starts a cursor and returns it with its first page.
func (p *Paginator) Open(ctx context.Context, q db.CursorQuery) (*Cursor, Page, error) {
	if q.PageSize <= 0 {
		return nil, Page{}, fmt.Errorf("page size must be positive, got %d", q.PageSize)
	}
	res, err := p.store.OpenCursor(ctx, &q)
	if err != nil {
		metrics.CursorOperationsTotal.WithLabelValues("open", "error").Inc()
		return nil, Page{}, fmt.Errorf("open cursor on %s: %w", q.IndexName, translate(err))
	}
	metrics.CursorOperationsTotal.WithLabelValues("open", "ok").Inc()

	c := &Cursor{index: q.IndexName, id: res.CursorID, pageSize: q.PageSize, ttl: q.MaxIdle}
	c.touch(p.now())
	return c, Page{Entries: res.Entries}, nil
}

// Continue fetches the next page. Past exhaustion it returns an empty page without a backend call.
func (p *Paginator) Continue(ctx context.Context, c *Cursor) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return Page{}, domain.ErrCursorClosed
	}
	if c.id == 0 {
		return Page{}, nil
	}
	now := p.now()
	if c.ttl > 0 && now.After(c.expiresAt) {
		return Page{}, domain.ErrCursorExpired
	}

	res, err := p.store.ReadCursor(ctx, c.index, c.id, c.pageSize)
	if err != nil {
		metrics.CursorOperationsTotal.WithLabelValues("read", "error").Inc()
		return Page{}, fmt.Errorf("read cursor %d: %w", c.id, translate(err))
	}
	metrics.CursorOperationsTotal.WithLabelValues("read", "ok").Inc()
	c.id = res.CursorID
	c.touch(now)
	return Page{Entries: res.Entries}, nil
}

// Close releases the cursor. It succeeds once; later calls report ErrCursorClosed.
func (p *Paginator) Close(ctx context.Context, c *Cursor) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrCursorClosed
	}
	c.closed = true
	if c.id == 0 {
		return nil
	}

	err := p.store.DeleteCursor(ctx, c.index, c.id)
	c.id = 0
	switch {
	case err == nil, errors.Is(err, db.ErrCursorNotFound):
		metrics.CursorOperationsTotal.WithLabelValues("close", "ok").Inc()
		return nil
	default:
		metrics.CursorOperationsTotal.WithLabelValues("close", "error").Inc()
		return fmt.Errorf("delete cursor: %w", err)
	}
}

// Each streams every page of q into fn. The cursor is always released; a failed
// release is logged and counted but does not fail the enumeration.
func (p *Paginator) Each(ctx context.Context, q db.CursorQuery, fn func(Page) error) (err error) {
	c, page, err := p.Open(ctx, q)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(context.WithoutCancel(ctx), c); cerr != nil {
			p.log.Warn("cursor close failed", zap.String("index", q.IndexName), zap.Error(cerr))
		}
	}()

	for !page.Empty() {
		if err := fn(page); err != nil {
			return err
		}
		if page, err = p.Continue(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cursor) touch(now time.Time) {
	c.expiresAt = now.Add(c.ttl)
}

func translate(err error) error {
	if errors.Is(err, db.ErrCursorNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrCursorExpired, err)
	}
	if errors.Is(err, db.ErrInvalidGeometry) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidGeometry, err)
	}
	return err
}
