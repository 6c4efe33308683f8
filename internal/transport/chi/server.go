package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodex/internal/dispatch"
	"github.com/kailas-cloud/geodex/internal/domain"
	dombatch "github.com/kailas-cloud/geodex/internal/domain/batch"
	"github.com/kailas-cloud/geodex/internal/domain/bucket"
	"github.com/kailas-cloud/geodex/internal/domain/geo"
	"github.com/kailas-cloud/geodex/internal/domain/query"
	domsite "github.com/kailas-cloud/geodex/internal/domain/site"
	logpkg "github.com/kailas-cloud/geodex/internal/logger"
	batchuc "github.com/kailas-cloud/geodex/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/geodex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/geodex/internal/usecase/health"
	"github.com/kailas-cloud/geodex/internal/usecase/mapview"
	siteuc "github.com/kailas-cloud/geodex/internal/usecase/site"
	"github.com/kailas-cloud/geodex/internal/version"
)

const (
	maxBodyBytes  = 8 << 20
	settleTimeout = 10 * time.Second
	// MaxLookupIDs caps the ids of one lookup request.
	MaxLookupIDs = 1000
	// MaxDetectPoints caps the points of one detection request.
	MaxDetectPoints = 1000
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	maps          *mapview.Service
	collections   *collectionuc.Service
	sites         *siteuc.Service
	batch         *batchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	maps *mapview.Service,
	collections *collectionuc.Service,
	sites *siteuc.Service,
	batch *batchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		maps:        maps,
		collections: collections,
		sites:       sites,
		batch:       batch,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(dispatch.ErrStopped, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidCondition, http.StatusBadRequest, codeInvalidCondition),
		sentinelHandler(domain.ErrInvalidGeometry, http.StatusBadRequest, codeInvalidGeometry),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, codeBatchTooLarge),
		sentinelHandler(domain.ErrCursorExpired, http.StatusGone, codeCursorExpired),
		sentinelHandler(domain.ErrResponseCountMismatch, http.StatusBadGateway, codeBackendInconsistent),
	}
	return s
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status":  report.Status,
		"checks":  checks,
		"version": version.String(),
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Aggregate handles POST /v1/aggregate. A viewport the backend cannot evaluate
// yields an empty bucket list with a warning.
func (s *Server) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := s.compile(req.Conditions)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	buckets, err := s.maps.Aggregate(r.Context(), req.Viewport.box(), req.Zoom, q, req.MaxSamples)
	resp := aggregateResponse{Depth: geo.DepthForZoom(req.Zoom)}
	switch {
	case errors.Is(err, domain.ErrInvalidGeometry):
		resp.Warning = domain.ErrInvalidGeometry.Error()
	case err != nil:
		s.handleDomainError(w, r, err)
		return
	}
	resp.Buckets = bucketsToDTO(buckets)
	resp.Total = bucket.Total(buckets)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) compile(cc []conditionDTO) (*query.Compiled, error) {
	entries, err := entriesFromDTO(cc)
	if err != nil {
		return nil, err
	}
	return s.maps.Compile(entries)
}

// Lookup handles POST /v1/lookup.
func (s *Server) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) > MaxLookupIDs {
		s.handleDomainError(w, r, fmt.Errorf("%d ids, max %d: %w", len(req.IDs), MaxLookupIDs, domain.ErrBatchTooLarge))
		return
	}
	rows, err := s.maps.Lookup(r.Context(), req.IDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rowsToDTO(rows)})
}

// Paths handles POST /v1/paths: the storage paths of every image matching the conditions.
func (s *Server) Paths(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	q, err := s.compile(req.Conditions)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	paths, err := s.maps.Paths(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pathsResponse{Count: len(paths), Paths: paths})
}

// DetectSites handles POST /v1/sites/detect.
func (s *Server) DetectSites(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Points) > MaxDetectPoints {
		s.handleDomainError(w, r, fmt.Errorf("%d points, max %d: %w", len(req.Points), MaxDetectPoints, domain.ErrBatchTooLarge))
		return
	}
	matches, err := s.sites.Detect(r.Context(), pointsFromDTO(req.Points))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make([]matchDTO, len(matches))
	for i, m := range matches {
		out[i] = matchDTO{Code: m.Code, Found: m.Found}
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": out})
}

// ListSites handles GET /v1/sites.
func (s *Server) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.sites.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	out := make([]siteDTO, len(sites))
	for i, st := range sites {
		out[i] = siteToDTO(st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// GetSite handles GET /v1/sites/{code}. It reads the local site cache.
func (s *Server) GetSite(w http.ResponseWriter, r *http.Request) {
	st, err := s.sites.Get(chi.URLParam(r, "code"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, siteToDTO(st))
}

// PutSites handles PUT /v1/sites.
func (s *Server) PutSites(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []siteDTO `json:"items"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	sites := make([]domsite.Site, 0, len(req.Items))
	for _, d := range req.Items {
		st, err := siteFromDTO(d)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		sites = append(sites, st)
	}
	if err := s.sites.Put(r.Context(), sites); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stored": len(sites)})
}

// ListCollections handles GET /v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]collectionDTO, len(cols))
	for i, c := range cols {
		items[i] = collectionToDTO(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetCollection handles GET /v1/collections/{id}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.collections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToDTO(col))
}

// PutCollection handles PUT /v1/collections/{id}.
func (s *Server) PutCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	col, created, err := s.collections.Put(r.Context(), id, req.Name, req.Organization, req.Contact, req.Description)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/v1/collections/"+id)
	}
	writeJSON(w, status, collectionToDTO(col))
}

// DeleteCollection handles DELETE /v1/collections/{id}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	n, err := s.collections.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted_images": n})
}

// IndexImages handles POST /v1/images.
func (s *Server) IndexImages(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	items := make([]batchuc.Item, len(req.Items))
	for i, d := range req.Items {
		items[i] = d.item()
	}

	results := s.batch.Index(r.Context(), items)
	resp := indexResponse{Items: make([]batchResultDTO, len(results))}
	for i, res := range results {
		resp.Items[i] = batchResultToDTO(res)
	}
	resp.Succeeded, resp.Failed = dombatch.Tally(results)

	status := http.StatusOK
	switch {
	case resp.Failed == 0:
	case resp.Succeeded == 0 && errors.Is(dombatch.FirstError(results), domain.ErrBatchTooLarge):
		status = http.StatusRequestEntityTooLarge
	default:
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

// CreateSession handles POST /v1/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	sess := s.maps.CreateSession(req.MaxSamples)
	w.Header().Set("Location", "/v1/sessions/"+sess.ID())
	s.writeSession(w, r, http.StatusCreated, sess)
}

// GetSession handles GET /v1/sessions/{id}. With ?wait=true it first waits for
// in-flight work to settle.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), settleTimeout)
		err := sess.Settle(ctx)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			s.handleDomainError(w, r, err)
			return
		}
	}
	s.writeSession(w, r, http.StatusOK, sess)
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.maps.CloseSession(chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSessionViewport handles PUT /v1/sessions/{id}/viewport.
func (s *Server) SetSessionViewport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req sessionViewportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.SetViewport(mapview.Viewport{Box: req.Viewport.box(), Zoom: req.Zoom}); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusAccepted, sess)
}

// SetSessionConditions handles PUT /v1/sessions/{id}/conditions.
func (s *Server) SetSessionConditions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req sessionConditionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entries, err := entriesFromDTO(req.Conditions)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := sess.SetConditions(entries); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusAccepted, sess)
}

// RecompileSession handles POST /v1/sessions/{id}/query.
func (s *Server) RecompileSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Recompile(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusAccepted, sess)
}

// SelectMarker handles POST /v1/sessions/{id}/markers/{index}/select.
func (s *Server) SelectMarker(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "marker index must be an integer")
		return
	}
	if err := sess.Select(index); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusAccepted, sess)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*mapview.Session, bool) {
	sess, err := s.maps.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, sess *mapview.Session) {
	v, err := sess.View()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, status, sessionToDTO(v, sess.Conditions().Entries()))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

var safeSentinels = []error{
	domain.ErrSessionNotFound,
	domain.ErrNotFound,
	domain.ErrAlreadyExists,
	domain.ErrInvalidInput,
	domain.ErrInvalidCondition,
	domain.ErrInvalidGeometry,
	domain.ErrBatchTooLarge,
	domain.ErrCursorExpired,
	domain.ErrCursorClosed,
	domain.ErrResponseCountMismatch,
	domain.ErrMarkerCountMismatch,
	dispatch.ErrStopped,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation errors keep their detail since it only describes the request.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidCondition) {
		return err.Error()
	}
	for _, s := range safeSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func batchErrorCode(err error) errorCode {
	switch {
	case errors.Is(err, domain.ErrBatchTooLarge):
		return codeBatchTooLarge
	case errors.Is(err, domain.ErrInvalidInput):
		return codeValidationFailed
	case errors.Is(err, domain.ErrNotFound):
		return codeNotFound
	default:
		return codeInternalError
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
