// Package server exposes the mediation layer over HTTP: routing, bearer
// enforcement, status-code mapping for the closed outcome sets, RFC 7807
// problem responses, and security/observability middleware.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/drivegate/drivegate"
	"github.com/drivegate/drivegate/download"
	"github.com/drivegate/drivegate/listing"
	"github.com/drivegate/drivegate/upload"
)

// DefaultSmallUploadLimit bounds the single-call upload endpoint; anything
// larger belongs in an upload session.
const DefaultSmallUploadLimit = 4 * 1024 * 1024

// Server wires the protocol components behind the HTTP surface.
type Server struct {
	gateway     drivegate.Gateway
	coordinator *upload.Coordinator
	negotiator  *download.Negotiator
	paginator   *listing.Paginator
	logger      *zap.Logger
	uploadLimit int64
	sessionTTL  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSmallUploadLimit overrides the single-call upload size bound.
func WithSmallUploadLimit(limit int64) Option {
	return func(s *Server) {
		s.uploadLimit = limit
	}
}

// WithSessionTTL overrides how long locally tracked upload sessions stay
// usable.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.sessionTTL = ttl
	}
}

// New initializes a Server over the given gateway and session store.
func New(gateway drivegate.Gateway, store upload.SessionStore, opts ...Option) *Server {
	s := &Server{
		gateway:     gateway,
		negotiator:  download.NewNegotiator(gateway),
		paginator:   listing.NewPaginator(gateway),
		logger:      zap.NewNop(),
		uploadLimit: DefaultSmallUploadLimit,
		sessionTTL:  upload.DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coordinator = upload.NewCoordinator(gateway, store, upload.WithSessionTTL(s.sessionTTL))
	return s
}

// Handler returns the routed HTTP handler with middleware applied. Everything
// under /api requires a bearer token; the token itself is opaque to this
// layer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	api := http.NewServeMux()
	api.HandleFunc("GET /api/containers/{id}/children", s.handleListChildren)
	api.HandleFunc("PUT /api/containers/{id}/files/{path...}", s.handleSmallUpload)
	api.HandleFunc("POST /api/drives/{driveID}/upload-session", s.handleCreateUploadSession)
	api.HandleFunc("PUT /api/upload-session/chunk", s.handleUploadChunk)
	api.HandleFunc("GET /api/drives/{driveID}/items/{itemID}/content", s.handleDownloadContent)
	api.HandleFunc("PATCH /api/drives/{driveID}/items/{itemID}", s.handleUpdateItem)
	api.HandleFunc("DELETE /api/drives/{driveID}/items/{itemID}", s.handleDeleteItem)
	mux.Handle("/api/", requireBearer(api))

	return securityHeaders(s.logRequests(instrumentRequests(mux)))
}
