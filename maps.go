package geodex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/geodex/internal/domain/query"
)

// AggregateOptions configures a one-shot aggregation.
type AggregateOptions struct {
	// Samples is the number of image IDs kept per bucket. Zero uses the client default.
	Samples int
	// Conditions all have to match. Incomplete polygons are ignored.
	Conditions []Condition
}

// Aggregate buckets the images inside box at the geohash depth implied by zoom.
// An invalid box returns no buckets and an error matching ErrInvalidGeometry.
func (c *Client) Aggregate(ctx context.Context, box BoundingBox, zoom float64, opts *AggregateOptions) (_ []Bucket, err error) {
	start := time.Now()
	defer func() { c.obs.observe("map.aggregate", start, err) }()

	if opts == nil {
		opts = &AggregateOptions{}
	}
	q, err := c.compile(opts.Conditions)
	if err != nil {
		return nil, fmt.Errorf("geodex: %w", err)
	}
	buckets, err := c.mapSvc.Aggregate(ctx, box, zoom, q, opts.Samples)
	if err != nil {
		return buckets, fmt.Errorf("geodex: %w", err)
	}
	return buckets, nil
}

// Lookup returns display rows for image IDs, in the order given. Unknown IDs are skipped.
func (c *Client) Lookup(ctx context.Context, ids ...string) (_ []Row, err error) {
	start := time.Now()
	defer func() { c.obs.observe("map.lookup", start, err) }()

	rows, err := c.mapSvc.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("geodex: %w", err)
	}
	return rows, nil
}

// Paths returns the storage path of every image matching all conditions.
// With no conditions every indexed image is listed.
func (c *Client) Paths(ctx context.Context, conds ...Condition) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("map.paths", start, err) }()

	q, err := c.compile(conds)
	if err != nil {
		return nil, fmt.Errorf("geodex: %w", err)
	}
	paths, err := c.mapSvc.Paths(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("geodex: %w", err)
	}
	return paths, nil
}

func (c *Client) compile(conds []Condition) (*query.Compiled, error) {
	entries := make([]query.Entry, len(conds))
	for i, cond := range conds {
		entries[i] = query.Entry{Enabled: true, Condition: cond}
	}
	return c.mapSvc.Compile(entries)
}

// NewSession opens a live map view. samples follows the Aggregate rules.
// Close the session with CloseSession or Client.Close.
func (c *Client) NewSession(samples int) *Session {
	return c.mapSvc.CreateSession(samples)
}

// Session returns an open session by ID.
func (c *Client) Session(id string) (*Session, error) {
	s, err := c.mapSvc.Session(id)
	if err != nil {
		return nil, fmt.Errorf("geodex: %w", err)
	}
	return s, nil
}

// CloseSession stops a session's background work.
func (c *Client) CloseSession(id string) error {
	if err := c.mapSvc.CloseSession(id); err != nil {
		return fmt.Errorf("geodex: %w", err)
	}
	return nil
}
