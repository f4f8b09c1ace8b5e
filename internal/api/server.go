package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawlhub/internal/batch"
	"github.com/JakeFAU/crawlhub/internal/config"
	"github.com/JakeFAU/crawlhub/internal/frontier"
	"github.com/JakeFAU/crawlhub/internal/metrics"
)

// maxBodyBytes bounds a submission body; 100 items with extracts fit well
// below it.
const maxBodyBytes = 8 << 20

// Submitter accepts batches. Implemented by *gateway.Gateway.
type Submitter interface {
	Submit(ctx context.Context, sub batch.Submission) (batch.Receipt, error)
	LastBatch() *batch.Receipt
}

// Catalog lists and fetches archived batches. Implemented by *catalog.Catalog.
type Catalog interface {
	ListBatches(ctx context.Context, date string) ([]batch.Group, error)
	ListBatchesForOwner(ctx context.Context, date, ownerToken string) ([]batch.Group, error)
	ListOwners(ctx context.Context, date string) ([]string, error)
	Fetch(ctx context.Context, key string) (batch.ArchivedBatch, error)
}

// URLLookup reads frontier rows.
type URLLookup interface {
	Lookup(ctx context.Context, urls []string) ([]frontier.URLRecord, error)
}

// Dependencies are the collaborators the handlers call.
type Dependencies struct {
	Submitter Submitter
	Catalog   Catalog
	URLs      URLLookup
	// Ready, when set, backs /readyz.
	Ready func(ctx context.Context) error
}

// Server wires HTTP handlers to the gateway, catalog and frontier.
type Server struct {
	router   chi.Router
	deps     Dependencies
	validate *validator.Validate
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Dependencies, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("api"),
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(traceContextMiddleware)
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(timeoutMiddleware(timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/", s.status)
		r.Get("/urls", s.lookupURLs)
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", s.createBatch)
			r.Get("/latest", s.latestBatch)
			r.Get("/v1/*", s.getBatch)
			r.Get("/{date}", s.listBatches)
			r.Get("/{date}/users", s.listOwners)
			r.Get("/{date}/users/{owner}", s.listOwnerBatches)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrArchiveWriteFailed):
		return http.StatusBadGateway
	case errors.Is(err, batch.ErrFrontierWriteFailed):
		return http.StatusInternalServerError
	case errors.Is(err, batch.ErrInvalidSubmission),
		errors.Is(err, batch.ErrInvalidInput),
		errors.Is(err, batch.ErrInvalidURL),
		errors.Is(err, batch.ErrInvalidDateFormat),
		errors.Is(err, batch.ErrInvalidOwnerToken):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, batch.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
