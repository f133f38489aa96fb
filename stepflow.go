package stepflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/stepflow/internal/logging"
	"github.com/aretw0/stepflow/internal/runtime"
	"github.com/aretw0/stepflow/pkg/adapters/memory"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/ports"
	"github.com/aretw0/stepflow/pkg/registry"
	"github.com/aretw0/stepflow/pkg/summarize"
)

// Engine is the high-level entry point for the stepflow library.
// It owns the graph and run registries and wraps the internal run loop.
type Engine struct {
	runtime  *runtime.Engine
	catalog  *summarize.Catalog
	graphs   ports.GraphRegistry
	runs     ports.RunStore
	tools    *registry.Registry
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxSteps int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRunStore replaces the in-memory run registry (e.g. with the Redis adapter).
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.runs = store
	}
}

// WithGraphRegistry replaces the in-memory graph registry.
func WithGraphRegistry(graphs ports.GraphRegistry) Option {
	return func(e *Engine) {
		e.graphs = graphs
	}
}

// WithTools sets the tool registry backing the built-in step set.
func WithTools(tools *registry.Registry) Option {
	return func(e *Engine) {
		e.tools = tools
	}
}

// WithMaxSteps caps step executions per run. Zero means unbounded.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// New initializes an Engine. Without options it keeps everything in process memory.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.graphs == nil {
		eng.graphs = memory.NewRegistry()
	}
	if eng.runs == nil {
		eng.runs = memory.NewStore()
	}

	eng.catalog = summarize.NewCatalog(eng.tools)
	eng.runtime = runtime.NewEngine(eng.graphs, eng.runs,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithMaxSteps(eng.maxSteps),
	)
	return eng
}

// Kinds lists the graph kinds CreateGraph accepts.
func (e *Engine) Kinds() []string {
	return e.catalog.Kinds()
}

// CreateGraph builds a graph of the given kind and registers it.
// It returns the new graph identifier.
func (e *Engine) CreateGraph(ctx context.Context, kind string) (string, error) {
	graph, err := e.catalog.Build(kind)
	if err != nil {
		return "", err
	}
	id, err := e.graphs.Register(ctx, kind, graph)
	if err != nil {
		return "", fmt.Errorf("failed to register graph: %w", err)
	}
	e.logger.Info("Graph created", "graph_id", id, "kind", kind)
	return id, nil
}

// Register adds a caller-built graph under the given kind label.
func (e *Engine) Register(ctx context.Context, kind string, graph *domain.Graph) (string, error) {
	return e.graphs.Register(ctx, kind, graph)
}

// Graph returns a registered graph.
func (e *Engine) Graph(ctx context.Context, graphID string) (*ports.GraphEntry, error) {
	return e.graphs.Get(ctx, graphID)
}

// Graphs lists registered graphs.
func (e *Engine) Graphs(ctx context.Context) ([]ports.GraphEntry, error) {
	return e.graphs.List(ctx)
}

// Run executes a registered graph from initial. onStep may be nil.
// See runtime.Engine.Run for the observer contract.
func (e *Engine) Run(ctx context.Context, graphID string, initial *domain.State, onStep domain.StepObserver) (*domain.State, string, error) {
	return e.runtime.Run(ctx, graphID, initial, onStep)
}

// State returns the latest snapshot of a run.
func (e *Engine) State(ctx context.Context, runID string) (*domain.State, error) {
	return e.runtime.Lookup(ctx, runID)
}

// Runs lists the IDs of runs known to the run store.
func (e *Engine) Runs(ctx context.Context) ([]string, error) {
	return e.runs.List(ctx)
}

// Inspect returns the full run record, including status and compact log.
func (e *Engine) Inspect(ctx context.Context, runID string) (*domain.Run, error) {
	return e.runtime.Inspect(ctx, runID)
}
