package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/metrics"
)

// Deps are the repositories a map view reads from.
type Deps struct {
	Buckets BucketRepository
	Sites   SiteRepository
	Images  ImageRepository
}

// Config holds map view limits.
type Config struct {
	DefaultSamples   int
	MaxSamples       int
	PinZoomThreshold float64
	SessionIdle      time.Duration
}

// Options are per-session settings.
type Options struct {
	MaxSamples       int
	PinZoomThreshold float64
}

// Service serves stateless aggregation and lookup, and owns the live sessions.
type Service struct {
	deps  Deps
	names image.CollectionNames
	cfg   Config
	log   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates a map view service.
func New(deps Deps, names image.CollectionNames, cfg Config, log *zap.Logger) *Service {
	if cfg.DefaultSamples <= 0 {
		cfg.DefaultSamples = 100
	}
	if cfg.MaxSamples < cfg.DefaultSamples {
		cfg.MaxSamples = cfg.DefaultSamples
	}
	return &Service{deps: deps, names: names, cfg: cfg, log: log, sessions: make(map[string]*Session)}
}

// Samples clamps a requested per-bucket sample count to the configured limits.
func (s *Service) Samples(requested int) int {
	switch {
	case requested <= 0:
		return s.cfg.DefaultSamples
	case requested > s.cfg.MaxSamples:
		return s.cfg.MaxSamples
	default:
		return requested
	}
}

// Compile checks entries against the image index and compiles the enabled ones.
func (s *Service) Compile(entries []query.Entry) (*query.Compiled, error) {
	if err := image.Conditions.CheckEntries(entries); err != nil {
		return nil, err
	}
	return query.Compile(entries), nil
}

// Aggregate buckets the images in a viewport. An invalid viewport yields an
// empty list together with domain.ErrInvalidGeometry.
func (s *Service) Aggregate(ctx context.Context, box geo.BoundingBox, zoom float64, q *query.Compiled, samples int) ([]bucket.GeoBucket, error) {
	if q == nil {
		q = query.MatchAll()
	}
	buckets, err := s.deps.Buckets.Aggregate(ctx, bucket.Request{Viewport: box, Zoom: zoom, Query: q, MaxSamples: s.Samples(samples)})
	if err != nil {
		return buckets, fmt.Errorf("aggregate: %w", err)
	}
	return buckets, nil
}

// Lookup returns the display rows for document IDs.
func (s *Service) Lookup(ctx context.Context, ids []string) ([]image.Row, error) {
	rows, err := s.deps.Images.Lookup(ctx, ids, s.names)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	return rows, nil
}

// Paths returns the storage path of every image matching q, for bulk download.
func (s *Service) Paths(ctx context.Context, q *query.Compiled) ([]string, error) {
	paths, err := s.deps.Images.PathsMatching(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("paths: %w", err)
	}
	return paths, nil
}

// CreateSession starts a session. samples follows the Samples clamping rules.
func (s *Service) CreateSession(samples int) *Session {
	opts := Options{MaxSamples: s.Samples(samples), PinZoomThreshold: s.cfg.PinZoomThreshold}
	sess := newSession(uuid.NewString(), s.deps, opts, s.names, s.log)

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()
	return sess
}

// Session returns a live session.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// CloseSession stops a session and forgets it.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.close()
	metrics.ActiveSessions.Dec()
	return nil
}

// Reap closes sessions idle since before cutoff and returns how many were closed.
func (s *Service) Reap(cutoff time.Time) int {
	s.mu.RLock()
	var idle []string
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	n := 0
	for _, id := range idle {
		if err := s.CloseSession(id); err == nil {
			n++
		}
	}
	if n > 0 {
		s.log.Info("idle sessions closed", zap.Int("count", n))
	}
	return n
}

// Run reaps idle sessions until ctx ends, then closes every session.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.SessionIdle <= 0 {
		<-ctx.Done()
		s.Close()
		return nil
	}
	t := time.NewTicker(s.cfg.SessionIdle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case now := <-t.C:
			s.Reap(now.Add(-s.cfg.SessionIdle))
		}
	}
}

// Close stops every session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
		metrics.ActiveSessions.Dec()
	}
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
