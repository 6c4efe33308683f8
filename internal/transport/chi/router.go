package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/geodex/internal/logger"
	"github.com/kailas-cloud/geodex/internal/metrics"
)

// NewRouter mounts the API routes behind the recovery, request-id, logging,
// auth and metrics middleware.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/aggregate", s.Aggregate)
		r.Post("/lookup", s.Lookup)
		r.Post("/paths", s.Paths)
		r.Post("/images", s.IndexImages)

		r.Get("/sites", s.ListSites)
		r.Put("/sites", s.PutSites)
		r.Post("/sites/detect", s.DetectSites)
		r.Get("/sites/{code}", s.GetSite)

		r.Get("/collections", s.ListCollections)
		r.Get("/collections/{id}", s.GetCollection)
		r.Put("/collections/{id}", s.PutCollection)
		r.Delete("/collections/{id}", s.DeleteCollection)

		r.Post("/sessions", s.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(sessionLogger)
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Put("/viewport", s.SetSessionViewport)
			r.Put("/conditions", s.SetSessionConditions)
			r.Post("/query", s.RecompileSession)
			r.Post("/markers/{index}/select", s.SelectMarker)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// sessionLogger tags the request logger with the session ID.
func sessionLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logpkg.With(r.Context(), zap.String("session_id", chi.URLParam(r, "id")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
