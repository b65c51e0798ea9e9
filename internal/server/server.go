// Package server exposes the half-life model registry over HTTP.
//
// Routes:
//
//	GET  /health      liveness and version
//	POST /predict     recall probability and half-life for a feature vector
//	POST /train       apply one review outcome
//	GET  /weights     weights and feature counts of a scope
//	PUT  /weights     replace the weights of a scope
//	POST /checkpoint  write every changed scope to the store
//	GET  /metrics     Prometheus metrics
//
// Scopes are chosen with the "scope" body field on POST routes and the
// "scope" query parameter on /weights. An absent scope means the global model.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noema/hlr/internal/registry"
	"github.com/noema/hlr/pkg/log"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "hlr-sidecar"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server is the sidecar HTTP API.
type Server struct {
	reg     *registry.Registry
	router  chi.Router
	version string
	metrics *Metrics
	logger  log.Logger
}

// New creates a Server backed by reg.
func New(reg *registry.Registry, version string) *Server {
	s := &Server{
		reg:     reg,
		version: version,
		metrics: NewMetrics(),
		logger:  log.GetLoggerWithName("server"),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.instrument("predict", s.handlePredict))
	r.Post("/train", s.instrument("train", s.handleTrain))
	r.Get("/weights", s.instrument("get_weights", s.handleGetWeights))
	r.Put("/weights", s.instrument("put_weights", s.handlePutWeights))
	r.Post("/checkpoint", s.instrument("checkpoint", s.handleCheckpoint))
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
}
