package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/flow/internal/logging"
	"github.com/aretw0/flow/pkg/deploy"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/aretw0/flow/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Manager defines the deployment operations served over HTTP.
type Manager interface {
	Update(ctx context.Context, def *domain.GraphDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
	List() []deploy.Summary
	Get(id uuid.UUID) (*deploy.Deployment, error)
	Spec() domain.Spec
	Trigger(ctx context.Context, id uuid.UUID, ref domain.PortRef) error
	Read(ctx context.Context, id uuid.UUID, ref domain.PortRef) (any, error)
	Probes(id uuid.UUID) ([]util.Reading, error)
}

// Server serves the management API.
type Server struct {
	Manager Manager
	Streams *StreamManager

	metrics *observability.Metrics
	version string
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithStreams serves /events from streams. Its hooks must be installed on the
// manager for events to flow.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger configures request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the manager.
func NewHandler(manager Manager, opts ...Option) http.Handler {
	server := &Server{
		Manager: manager,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager(server.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	if server.metrics != nil {
		r.Use(server.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", server.metrics.Handler())
	}

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/spec", server.GetSpec)
	r.Get("/events", server.SubscribeEvents)

	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", server.ListGraphs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetGraph)
			r.Put("/", server.PutGraph)
			r.Delete("/", server.DeleteGraph)
			r.Get("/probes", server.GetProbes)
			r.Post("/trigger/{ref}", server.Trigger)
			r.Get("/ports/{ref}", server.ReadPort)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps runtime errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrGraphNotFound):
		return http.StatusNotFound
	case errors.Is(err, deploy.ErrNameConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, domain.ErrTypeMismatch),
		errors.Is(err, domain.ErrPortUnresolved),
		errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrInvalidExpression),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrNoImplementation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, format string, args ...any) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func graphID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func portRef(r *http.Request) (domain.PortRef, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "ref"))
	if err != nil || n <= 0 {
		return domain.Unwired, fmt.Errorf("invalid port ref %q", chi.URLParam(r, "ref"))
	}
	return domain.PortRef(n), nil
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "flow-http",
		"version": s.version,
		"graphs":  len(s.Manager.List()),
	})
}

// GetSpec handles the GET /spec request.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Manager.Spec())
}

// ListGraphs handles the GET /graphs request.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Manager.List())
}

// graphResponse describes one deployment.
type graphResponse struct {
	ID         uuid.UUID               `json:"id"`
	Name       string                  `json:"name"`
	ScopeID    uuid.UUID               `json:"scope_id"`
	Phase      string                  `json:"phase"`
	Definition *domain.GraphDefinition `json:"definition"`
}

// GetGraph handles the GET /graphs/{id} request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	id, err := graphID(r)
	if err != nil {
		s.badRequest(w, "invalid graph id: %v", err)
		return
	}
	d, err := s.Manager.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, graphResponse{
		ID:         id,
		Name:       d.Graph.Name,
		ScopeID:    d.Scope.ID(),
		Phase:      d.Scope.Phase().String(),
		Definition: d.Definition,
	})
}

// PutGraph handles the PUT /graphs/{id} request. The path ID wins over the body.
func (s *Server) PutGraph(w http.ResponseWriter, r *http.Request) {
	id, err := graphID(r)
	if err != nil {
		s.badRequest(w, "invalid graph id: %v", err)
		return
	}
	var def domain.GraphDefinition
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&def); err != nil {
		s.badRequest(w, "invalid request body: %v", err)
		return
	}
	def.ID = id
	if def.Name == "" {
		s.badRequest(w, "graph name is required")
		return
	}

	if err := s.Manager.Update(r.Context(), &def); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, deploy.Summary{ID: id, Name: def.Name, Doc: def.Doc, Nodes: len(def.Nodes)})
}

// DeleteGraph handles the DELETE /graphs/{id} request.
func (s *Server) DeleteGraph(w http.ResponseWriter, r *http.Request) {
	id, err := graphID(r)
	if err != nil {
		s.badRequest(w, "invalid graph id: %v", err)
		return
	}
	if err := s.Manager.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProbes handles the GET /graphs/{id}/probes request.
func (s *Server) GetProbes(w http.ResponseWriter, r *http.Request) {
	id, err := graphID(r)
	if err != nil {
		s.badRequest(w, "invalid graph id: %v", err)
		return
	}
	readings, err := s.Manager.Probes(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, readings)
}

// Trigger handles the POST /graphs/{id}/trigger/{ref} request.
func (s *Server) Trigger(w http.ResponseWriter, r *http.Request) {
	id, err := graphID(r)
	if err != nil {
		s.badRequest(w, "invalid graph id: %v", err)
		return
	}
	ref, err := portRef(r)
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	if err := s.Manager.Trigger(r.Context(), id, ref); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReadPort handles the GET /graphs/{id}/ports/{ref} request.
func (s *Server) ReadPort(w http.ResponseWriter, r *http.Request) {
	id, err := graphID(r)
	if err != nil {
		s.badRequest(w, "invalid graph id: %v", err)
		return
	}
	ref, err := portRef(r)
	if err != nil {
		s.badRequest(w, "%v", err)
		return
	}
	v, err := s.Manager.Read(r.Context(), id, ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ref": ref, "value": v})
}
