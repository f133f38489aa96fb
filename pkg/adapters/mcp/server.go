package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stepflow"
	"github.com/aretw0/stepflow/internal/logging"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// KindsURI is the resource listing supported graph kinds.
const KindsURI = "stepflow://kinds"

// Engine defines the interface required by the MCP server.
type Engine interface {
	Kinds() []string
	CreateGraph(ctx context.Context, kind string) (string, error)
	Run(ctx context.Context, graphID string, initial *domain.State, onStep domain.StepObserver) (*domain.State, string, error)
	Inspect(ctx context.Context, runID string) (*domain.Run, error)
}

var _ Engine = (*stepflow.Engine)(nil)

// CreateGraphResult is returned by create_graph.
type CreateGraphResult struct {
	GraphID string `json:"graph_id" jsonschema_description:"Identifier of the new graph"`
}

// RunGraphResult is returned by run_graph.
type RunGraphResult struct {
	RunID      string            `json:"run_id" jsonschema_description:"Identifier of the run"`
	FinalState *domain.State     `json:"final_state" jsonschema_description:"State after the last node"`
	Log        []domain.LogEntry `json:"log" jsonschema_description:"Last log entry of every node execution"`
}

type createGraphArgs struct {
	Type string `mapstructure:"type"`
}

type runGraphArgs struct {
	GraphID            string `mapstructure:"graph_id"`
	InputText          string `mapstructure:"input_text"`
	MaxLength          *int   `mapstructure:"max_length"`
	SelectedChunkIndex *int   `mapstructure:"selected_chunk_index"`
}

type runStateArgs struct {
	RunID string `mapstructure:"run_id"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stepflow-mcp", strings.TrimSpace(stepflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	createTool := mcp.NewTool("create_graph",
		mcp.WithDescription("Create a workflow graph of a known kind and return its identifier."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Graph kind, e.g. option_b")),
		mcp.WithOutputSchema[CreateGraphResult](),
	)
	s.mcpServer.AddTool(createTool, mcp.NewStructuredToolHandler(s.handleCreateGraph))

	runTool := mcp.NewTool("run_graph",
		mcp.WithDescription("Run a graph over the given text until it finishes and return the final state."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Identifier returned by create_graph")),
		mcp.WithString("input_text", mcp.Required(), mcp.Description("Text to process")),
		mcp.WithNumber("max_length", mcp.Description("Target summary length in words (default 200, 0 = derived from input)")),
		mcp.WithNumber("selected_chunk_index", mcp.Description("Optional chunk index carried in the state")),
		mcp.WithOutputSchema[RunGraphResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunGraph))

	stateTool := mcp.NewTool("get_run_state",
		mcp.WithDescription("Get the run record: status, latest state and compact log."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Identifier returned by run_graph")),
		mcp.WithOutputSchema[domain.Run](),
	)
	s.mcpServer.AddTool(stateTool, mcp.NewStructuredToolHandler(s.handleGetRunState))
}

// decode maps loosely typed tool arguments onto a tagged struct.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) handleCreateGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (CreateGraphResult, error) {
	var in createGraphArgs
	if err := decode(args, &in); err != nil {
		return CreateGraphResult{}, err
	}

	id, err := s.engine.CreateGraph(ctx, in.Type)
	if err != nil {
		return CreateGraphResult{}, err
	}
	return CreateGraphResult{GraphID: id}, nil
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunGraphResult, error) {
	var in runGraphArgs
	if err := decode(args, &in); err != nil {
		return RunGraphResult{}, err
	}

	maxLength := domain.DefaultMaxLength
	if in.MaxLength != nil {
		maxLength = *in.MaxLength
	}
	initial := domain.NewState(in.InputText, maxLength)
	initial.SelectedChunkIndex = in.SelectedChunkIndex

	runCtx := context.WithoutCancel(ctx)
	final, runID, err := s.engine.Run(runCtx, in.GraphID, initial, nil)
	if err != nil {
		s.logger.Warn("MCP run_graph failed", "graph_id", in.GraphID, "run_id", runID, "error", err)
		return RunGraphResult{}, err
	}

	run, err := s.engine.Inspect(runCtx, runID)
	if err != nil {
		return RunGraphResult{}, err
	}
	return RunGraphResult{RunID: runID, FinalState: final, Log: run.Log}, nil
}

func (s *Server) handleGetRunState(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (domain.Run, error) {
	var in runStateArgs
	if err := decode(args, &in); err != nil {
		return domain.Run{}, err
	}

	run, err := s.engine.Inspect(ctx, in.RunID)
	if err != nil {
		return domain.Run{}, err
	}
	return *run, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(KindsURI, "Supported graph kinds",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Kinds())
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      KindsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
