// Package server wires the HTTP stack: routing, middleware, store lifecycle,
// and model pack installation. All model state hangs off the Server behind a
// read lock so an install can swap artifacts without a restart.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrisense/farm-recommender/internal/api"
	"github.com/agrisense/farm-recommender/internal/artifacts"
	"github.com/agrisense/farm-recommender/internal/config"
	"github.com/agrisense/farm-recommender/internal/dataset"
	"github.com/agrisense/farm-recommender/internal/engine"
	"github.com/agrisense/farm-recommender/internal/history"
	"github.com/agrisense/farm-recommender/internal/logging"
	"github.com/agrisense/farm-recommender/internal/metrics"
)

// Server holds all the components for the recommendation service
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler

	mu           sync.RWMutex
	eng          *engine.Engine
	datasetStore *dataset.Store
	historyStore *history.Store
}

// New creates a Server with all stores initialized. Model artifacts are
// required; the training dataset and history stores degrade to warnings.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	bundle, err := artifacts.Load(cfg.ModelsDir)
	if err != nil {
		return nil, fmt.Errorf("could not load model artifacts: %w", err)
	}
	s.eng = engine.FromBundle(bundle)

	datasetStore, err := dataset.NewStore(cfg.DataDir)
	if err != nil {
		logging.Warn().Err(err).Msg("training dataset not available")
	} else {
		s.datasetStore = datasetStore
	}

	historyStore, err := history.NewStore(cfg.DataDir)
	if err != nil {
		logging.Warn().Err(err).Msg("history store not available")
	} else {
		s.historyStore = historyStore
	}

	s.setupRoutes()

	return s, nil
}

// Engine returns the current serving engine.
func (s *Server) Engine() *engine.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eng
}

// Dataset returns the current training dataset store, or nil.
func (s *Server) Dataset() *dataset.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasetStore
}

// History returns the consultation history store, or nil.
func (s *Server) History() *history.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyStore
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Request logging runs inside the router so the matched route template is
	// available; CORS wraps outside so preflight requests on POST-only routes
	// are still answered.
	s.router.Use(s.requestLogMiddleware)

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	// Model pack management routes
	s.router.HandleFunc("/api/modelpack/status", s.handleModelpackStatus).Methods("GET")
	s.router.HandleFunc("/api/modelpack/install", s.handleModelpackInstall).Methods("POST")

	// Prometheus metrics
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.handler = corsMiddleware(s.router)
}

// requestLogMiddleware tags each request with an ID, logs it, and feeds the
// duration histogram.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		routePath := routeTemplate(r)
		metrics.RequestDuration.WithLabelValues(
			routePath, r.Method, fmt.Sprintf("%d", rec.status),
		).Observe(elapsed.Seconds())

		logging.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request")
	})
}

// routeTemplate returns the matched mux route pattern so path variables do
// not explode metric cardinality.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// corsMiddleware allows browser frontends on other origins to call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handler returns the fully wrapped HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logging.Info().Int("port", s.cfg.Port).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.mu.Lock()
	if s.datasetStore != nil {
		s.datasetStore.Close()
		s.datasetStore = nil
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}
