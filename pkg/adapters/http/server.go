package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/stepflow"
	"github.com/aretw0/stepflow/internal/logging"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the subset of the stepflow engine the transport needs.
type Engine interface {
	CreateGraph(ctx context.Context, kind string) (string, error)
	Graph(ctx context.Context, graphID string) (*ports.GraphEntry, error)
	Graphs(ctx context.Context) ([]ports.GraphEntry, error)
	Run(ctx context.Context, graphID string, initial *domain.State, onStep domain.StepObserver) (*domain.State, string, error)
	State(ctx context.Context, runID string) (*domain.State, error)
	Inspect(ctx context.Context, runID string) (*domain.Run, error)
	Runs(ctx context.Context) ([]string, error)
}

var _ Engine = (*stepflow.Engine)(nil)

// Server exposes an Engine over HTTP and WebSocket.
type Server struct {
	Engine   Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/", s.GetRoot)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/graphs", s.ListGraphs)
	r.Post("/graph/create", s.CreateGraph)
	r.Post("/graph/run", s.RunGraph)
	r.Get("/graph/state/{run_id}", s.GetRunState)
	r.Get("/graph/runs", s.ListRuns)
	r.Get("/graph/runs/{run_id}", s.GetRun)
	r.Get("/ws/run", s.StreamRun)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateGraphRequest is the body of POST /graph/create.
type CreateGraphRequest struct {
	Type string `json:"type"`
}

// CreateGraphResponse is returned by POST /graph/create.
type CreateGraphResponse struct {
	GraphID string `json:"graph_id"`
}

// RunGraphRequest is the body of POST /graph/run and the first WebSocket message.
type RunGraphRequest struct {
	GraphID            string `json:"graph_id"`
	InputText          string `json:"input_text"`
	MaxLength          *int   `json:"max_length,omitempty"`
	SelectedChunkIndex *int   `json:"selected_chunk_index,omitempty"`
}

// State builds the initial run state. An omitted max_length becomes
// domain.DefaultMaxLength; an explicit zero lets split_text compute one.
func (req RunGraphRequest) State() *domain.State {
	maxLength := domain.DefaultMaxLength
	if req.MaxLength != nil {
		maxLength = *req.MaxLength
	}
	st := domain.NewState(req.InputText, maxLength)
	st.SelectedChunkIndex = req.SelectedChunkIndex
	return st
}

// RunGraphResponse is returned by POST /graph/run.
type RunGraphResponse struct {
	RunID      string            `json:"run_id"`
	FinalState *domain.State     `json:"final_state"`
	Log        []domain.LogEntry `json:"log"`
}

// GraphInfo describes a registered graph.
type GraphInfo struct {
	GraphID string            `json:"graph_id"`
	Kind    string            `json:"kind"`
	Start   string            `json:"start"`
	Nodes   []string          `json:"nodes"`
	Edges   map[string]string `json:"edges"`
}

// GetRoot handles GET /.
func (s *Server) GetRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is running!"})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI document", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "stepflow-http",
		"version":     strings.TrimSpace(stepflow.Version),
		"api_version": apiVersion,
	})
}

// ListGraphs handles GET /graphs.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.Engine.Graphs(r.Context())
	if err != nil {
		s.logger.Error("ListGraphs failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]GraphInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, GraphInfo{
			GraphID: e.ID,
			Kind:    e.Kind,
			Start:   e.Graph.Start(),
			Nodes:   e.Graph.Nodes(),
			Edges:   e.Graph.Edges(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateGraph handles POST /graph/create.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var body CreateGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("CreateGraph: Invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := s.Engine.CreateGraph(r.Context(), body.Type)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedGraphKind) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("CreateGraph failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CreateGraphResponse{GraphID: id})
}

// RunGraph handles POST /graph/run. It blocks until the run finishes.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	var body RunGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("RunGraph: Invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The run outlives the request: a client that gives up must not abort it.
	ctx := context.WithoutCancel(r.Context())

	final, runID, err := s.Engine.Run(ctx, body.GraphID, body.State(), nil)
	if err != nil {
		if errors.Is(err, domain.ErrGraphNotFound) {
			writeError(w, http.StatusNotFound, "Graph not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Server error while running graph: %v", err))
		return
	}

	run, err := s.Engine.Inspect(ctx, runID)
	if err != nil {
		s.logger.Error("RunGraph: failed to load run record", "run_id", runID, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Server error while running graph: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, RunGraphResponse{
		RunID:      runID,
		FinalState: final,
		Log:        run.Log,
	})
}

// GetRunState handles GET /graph/state/{run_id}.
func (s *Server) GetRunState(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.State(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// RunListResponse is returned by GET /graph/runs.
type RunListResponse struct {
	RunIDs []string `json:"run_ids"`
}

// ListRuns handles GET /graph/runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Runs(r.Context())
	if err != nil {
		s.logger.Error("ListRuns failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{RunIDs: ids})
}

// GetRun handles GET /graph/runs/{run_id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	s.logger.Error("Run lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// -- Helpers --

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
