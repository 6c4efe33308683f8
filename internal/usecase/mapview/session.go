package mapview

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/dispatch"
	"github.com/kailas-cloud/geodex/internal/domain"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/image"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	"github.com/kailas-cloud/geodex/internal/domain/site"
	"github.com/kailas-cloud/geodex/internal/metrics"
)

const settlePoll = 5 * time.Millisecond

// Viewport is the visible map area and zoom level.
type Viewport struct {
	Box  geo.BoundingBox
	Zoom float64
}

type aggResult struct {
	buckets []bucket.GeoBucket
	warn    error
}

type siteInput struct {
	box  geo.BoundingBox
	zoom float64
}

type siteResult struct {
	sites []site.Site
	zoom  float64
	warn  error
}

type selectionInput struct {
	generation uint64
	index      int
	ids        []string
}

type selectionResult struct {
	selectionInput
	rows []image.Row
}

// Session is one map viewer: its viewport, filter conditions, markers, overlays and
// selection. State is owned by the session loop; public methods hop onto it.
type Session struct {
	id         string
	loop       *dispatch.Loop
	cancel     context.CancelFunc
	log        *zap.Logger
	opts       Options
	names      image.CollectionNames
	conditions *query.List
	lastUsed   atomic.Int64

	viewport    Viewport
	hasViewport bool
	compiled    *query.Compiled
	comp        *Compositor[Node]
	recon       *Reconciler
	siteNodes   []*SiteNode
	overlays    []Node
	rows        []image.Row
	lastErr     error
	version     uint64

	buckets   *dispatch.Worker[bucket.Request, aggResult]
	sites     *dispatch.Worker[siteInput, siteResult]
	selection *dispatch.Worker[selectionInput, selectionResult]
}

func newSession(id string, deps Deps, opts Options, names image.CollectionNames, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	comp := NewCompositor[Node]()
	s := &Session{
		id:         id,
		loop:       dispatch.NewLoop(64),
		cancel:     cancel,
		log:        log.With(zap.String("session", id)),
		opts:       opts,
		names:      names,
		conditions: query.NewList(),
		compiled:   query.MatchAll(),
		comp:       comp,
		recon:      NewReconciler(comp),
	}
	s.touch()

	s.buckets = dispatch.NewWorker(ctx, s.loop, "buckets", dispatch.Job[bucket.Request, aggResult]{
		Snapshot: func() bucket.Request {
			return bucket.Request{Viewport: s.viewport.Box, Zoom: s.viewport.Zoom, Query: s.compiled, MaxSamples: s.opts.MaxSamples}
		},
		Run: func(ctx context.Context, req bucket.Request) (aggResult, error) {
			b, err := deps.Buckets.Aggregate(ctx, req)
			if errors.Is(err, domain.ErrInvalidGeometry) {
				return aggResult{buckets: b, warn: err}, nil
			}
			return aggResult{buckets: b}, err
		},
		Apply: s.applyBuckets,
		Fail:  s.fail("buckets"),
	}, s.log)

	s.sites = dispatch.NewWorker(ctx, s.loop, "sites", dispatch.Job[siteInput, siteResult]{
		Snapshot: func() siteInput { return siteInput{box: s.viewport.Box, zoom: s.viewport.Zoom} },
		Run: func(ctx context.Context, in siteInput) (siteResult, error) {
			found, err := deps.Sites.Within(ctx, in.box)
			if errors.Is(err, domain.ErrInvalidGeometry) {
				return siteResult{zoom: in.zoom, warn: err}, nil
			}
			return siteResult{sites: found, zoom: in.zoom}, err
		},
		Apply: s.applySites,
		Fail:  s.fail("sites"),
	}, s.log)

	s.selection = dispatch.NewWorker(ctx, s.loop, "selection", dispatch.Job[selectionInput, selectionResult]{
		Snapshot: s.selectionSnapshot,
		Run: func(ctx context.Context, in selectionInput) (selectionResult, error) {
			rows, err := deps.Images.Lookup(ctx, in.ids, s.names)
			return selectionResult{selectionInput: in, rows: rows}, err
		},
		Apply: s.applySelection,
		Fail:  s.fail("selection"),
	}, s.log)

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Conditions returns the live filter list. Call Recompile after editing it.
func (s *Session) Conditions() *query.List { return s.conditions }

// SetViewport moves the map. Buckets and site overlays are refreshed.
func (s *Session) SetViewport(v Viewport) error {
	s.touch()
	return s.loop.Call(func() {
		s.viewport = v
		s.hasViewport = true
		s.buckets.Request()
		s.sites.Request()
	})
}

// SetConditions replaces the filter list and recompiles. Entries the image
// index cannot evaluate are rejected and the list is left as it was.
func (s *Session) SetConditions(entries []query.Entry) error {
	if err := image.Conditions.CheckEntries(entries); err != nil {
		return err
	}
	s.conditions.Reset(entries)
	return s.Recompile()
}

// Recompile rebuilds the query from the current conditions and refreshes buckets.
// The previous query stays in force while the list holds an invalid condition.
func (s *Session) Recompile() error {
	s.touch()
	entries := s.conditions.Entries()
	if err := image.Conditions.CheckEntries(entries); err != nil {
		return err
	}
	return s.loop.Call(func() {
		s.compiled = query.Compile(entries)
		s.redrawOverlays()
		if s.hasViewport {
			s.buckets.Request()
		}
	})
}

// Select makes marker index the selection and fetches its rows. Reselecting the
// current marker does not fetch again.
func (s *Session) Select(index int) error {
	s.touch()
	var err error
	if cerr := s.loop.Call(func() {
		var changed bool
		if _, changed, err = s.recon.Select(index); err != nil || !changed {
			return
		}
		s.rows = nil
		s.version++
		s.selection.Request()
	}); cerr != nil {
		return cerr
	}
	return err
}

// View returns a snapshot of the session state.
func (s *Session) View() (View, error) {
	s.touch()
	var v View
	err := s.loop.Call(func() { v = s.viewLocked() })
	return v, err
}

// Settle waits until no worker run is in flight.
func (s *Session) Settle(ctx context.Context) error {
	t := time.NewTicker(settlePoll)
	defer t.Stop()
	for {
		var busy bool
		if err := s.loop.Call(func() { busy = s.busy() }); err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Session) close() {
	s.cancel()
	s.loop.Stop()
}

func (s *Session) touch() { s.lastUsed.Store(time.Now().UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) busy() bool {
	return s.buckets.Busy() || s.sites.Busy() || s.selection.Busy()
}

func (s *Session) applyBuckets(res aggResult) {
	if _, err := s.recon.Apply(res.buckets); err != nil {
		metrics.InvariantViolationsTotal.WithLabelValues("markers").Inc()
		s.log.Error("marker reconciliation discarded", zap.Error(err))
		s.lastErr = err
		return
	}
	s.rows = nil
	s.lastErr = res.warn
	if res.warn != nil {
		s.log.Warn("aggregation rejected viewport", zap.Error(res.warn))
	}
	s.version++
}

func (s *Session) applySites(res siteResult) {
	for _, n := range s.siteNodes {
		s.comp.Remove(n)
	}
	s.siteNodes = s.siteNodes[:0]
	shape := site.ShapeForZoom(res.zoom, s.opts.PinZoomThreshold)
	for _, st := range res.sites {
		n := &SiteNode{Site: st, Shape: shape}
		s.comp.Add(n, n.layer())
		s.siteNodes = append(s.siteNodes, n)
	}
	if res.warn != nil {
		s.log.Warn("site lookup rejected viewport", zap.Error(res.warn))
		s.lastErr = res.warn
	}
	s.version++
}

func (s *Session) selectionSnapshot() selectionInput {
	in := selectionInput{generation: s.recon.Generation(), index: s.recon.Selected()}
	if in.index >= 0 {
		in.ids = s.recon.markers[in.index].bucket.SampleIDs()
	}
	return in
}

func (s *Session) applySelection(res selectionResult) {
	if res.generation != s.recon.Generation() || res.index != s.recon.Selected() {
		s.log.Debug("selection rows outdated", zap.Int("index", res.index))
		return
	}
	s.rows = res.rows
	s.version++
}

func (s *Session) fail(worker string) func(error) {
	return func(err error) {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.Error("worker run failed", zap.String("worker", worker), zap.Error(err))
		s.lastErr = err
		s.version++
	}
}

// redrawOverlays draws enabled polygon filters: the outline once it encloses an
// area, and a handle per vertex.
func (s *Session) redrawOverlays() {
	for _, n := range s.overlays {
		s.comp.Remove(n)
	}
	s.overlays = s.overlays[:0]
	for _, e := range s.conditions.Entries() {
		pc, ok := e.Condition.(query.PolygonCondition)
		if !e.Enabled || !ok {
			continue
		}
		ring := pc.Ring()
		if ring.Encloses() {
			n := &FilterPolygon{EntryID: e.ID, Ring: ring}
			s.comp.Add(n, LayerFilterPolygons)
			s.overlays = append(s.overlays, n)
		}
		for i, p := range ring {
			n := &FilterVertex{EntryID: e.ID, Index: i, Point: p}
			s.comp.Add(n, LayerFilterVertices)
			s.overlays = append(s.overlays, n)
		}
	}
	s.version++
}
