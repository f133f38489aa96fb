package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stepflow/internal/logging"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/ports"
	"github.com/google/uuid"
)

// Engine is the run loop. It drives one graph at a time per call to Run and
// may be shared by many concurrent runs; all shared state lives in the injected stores.
type Engine struct {
	graphs   ports.GraphRegistry
	runs     ports.RunStore
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxSteps int
	newID    func() string
	now      func() time.Time
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMaxSteps caps the number of step executions per run.
// Zero (the default) leaves runs unbounded: a cycle whose steps never set
// Done will loop forever.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates a new engine over the given registries.
func NewEngine(graphs ports.GraphRegistry, runs ports.RunStore, opts ...EngineOption) *Engine {
	e := &Engine{
		graphs: graphs,
		runs:   runs,
		logger: logging.NewNop(),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.hooks = guardHooks(e.hooks, e.logger)
	return e
}

// Run executes the graph registered under graphID starting from initial.
//
// After every node the latest state is written to the run store, onStep (if
// any) is called with the post-execution state, and the node's newest log
// entry is appended to the compact log. When the loop stops, onStep is called
// once more with domain.EndNode.
//
// Steps and the observer can read the run ID with domain.RunIDFromContext.
// The run ID is returned even on failure so callers can inspect the last
// committed snapshot; it is empty only when the graph is unknown.
func (e *Engine) Run(ctx context.Context, graphID string, initial *domain.State, onStep domain.StepObserver) (*domain.State, string, error) {
	entry, err := e.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, "", err
	}
	if initial == nil {
		return nil, "", fmt.Errorf("initial state: %w", domain.ErrNilState)
	}

	runID := e.newID()
	ctx = domain.ContextWithRunID(ctx, runID)
	logger := e.logger.With("run_id", runID, "graph_id", graphID)
	started := e.now()

	if err := e.runs.Create(ctx, &domain.Run{
		ID:        runID,
		GraphID:   graphID,
		Status:    domain.RunRunning,
		State:     initial,
		Log:       []domain.LogEntry{},
		StartedAt: started,
		UpdatedAt: started,
	}); err != nil {
		return nil, "", fmt.Errorf("failed to register run: %w", err)
	}

	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: e.base(domain.EventRunStart, runID, graphID),
			Status:    domain.RunRunning,
		})
	}
	logger.Debug("Run started", "start_node", entry.Graph.Start())

	obs := &observer{fn: onStep, logger: logger}
	state, steps, err := e.loop(ctx, runID, graphID, entry.Graph, initial, obs, logger)
	if err != nil {
		e.fail(ctx, runID, graphID, steps, err, logger)
		return nil, runID, err
	}

	obs.notify(ctx, domain.EndNode, state)

	if err := e.runs.Finish(ctx, runID, domain.RunCompleted, ""); err != nil {
		logger.Warn("Failed to mark run completed", "error", err)
	}
	if e.hooks.OnRunFinish != nil {
		e.hooks.OnRunFinish(ctx, &domain.RunEvent{
			EventBase: e.base(domain.EventRunFinish, runID, graphID),
			Status:    domain.RunCompleted,
			Steps:     steps,
		})
	}
	logger.Info("Run completed", "steps", steps, "done", state.Done)

	return state, runID, nil
}

func (e *Engine) loop(
	ctx context.Context,
	runID, graphID string,
	graph *domain.Graph,
	state *domain.State,
	obs *observer,
	logger *slog.Logger,
) (*domain.State, int, error) {
	steps := 0
	current := graph.Start()

	for current != "" && !state.Done {
		if err := ctx.Err(); err != nil {
			return nil, steps, fmt.Errorf("run interrupted before %q: %w", current, err)
		}
		if e.maxSteps > 0 && steps >= e.maxSteps {
			return nil, steps, fmt.Errorf("%w: %d steps executed, next node %q", domain.ErrStepBudgetExceeded, steps, current)
		}

		step, ok := graph.Step(current)
		if !ok {
			return nil, steps, &domain.NodeExecutionError{Node: current, Cause: domain.ErrNodeMissing}
		}

		if e.hooks.OnNodeEnter != nil {
			e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
				EventBase: e.base(domain.EventNodeEnter, runID, graphID),
				NodeID:    current,
			})
		}

		began := time.Now()
		next, err := execute(ctx, current, step, state)
		steps++

		if e.hooks.OnNodeLeave != nil {
			e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
				EventBase: e.base(domain.EventNodeLeave, runID, graphID),
				NodeID:    current,
				Duration:  time.Since(began),
				Err:       err,
			})
		}
		if err != nil {
			return nil, steps, err
		}
		state = next

		if err := e.runs.SaveSnapshot(ctx, runID, state); err != nil {
			return nil, steps, fmt.Errorf("failed to save snapshot after %q: %w", current, err)
		}

		obs.notify(ctx, current, state)

		if last, ok := state.LastLog(); ok {
			if err := e.runs.AppendLog(ctx, runID, last); err != nil {
				return nil, steps, fmt.Errorf("failed to append log after %q: %w", current, err)
			}
		}

		logger.Debug("Node executed", "node", current, "done", state.Done)
		current, _ = graph.Next(current)
	}

	return state, steps, nil
}

func (e *Engine) fail(ctx context.Context, runID, graphID string, steps int, cause error, logger *slog.Logger) {
	attrs := []any{"steps", steps, "error", cause}
	var nodeErr *domain.NodeExecutionError
	if errors.As(cause, &nodeErr) {
		attrs = append(attrs, "node", nodeErr.Node)
	}
	logger.Error("Run failed", attrs...)

	// The caller's context may be the reason we are failing.
	if err := e.runs.Finish(context.WithoutCancel(ctx), runID, domain.RunFailed, cause.Error()); err != nil {
		logger.Warn("Failed to mark run failed", "error", err)
	}
	if e.hooks.OnRunFinish != nil {
		e.hooks.OnRunFinish(ctx, &domain.RunEvent{
			EventBase: e.base(domain.EventRunFinish, runID, graphID),
			Status:    domain.RunFailed,
			Steps:     steps,
			Err:       cause,
		})
	}
}

func (e *Engine) base(t domain.EventType, runID, graphID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		RunID:     runID,
		GraphID:   graphID,
	}
}

// Lookup returns the latest state snapshot of a run.
func (e *Engine) Lookup(ctx context.Context, runID string) (*domain.State, error) {
	run, err := e.runs.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run.State, nil
}

// Inspect returns the full run record.
func (e *Engine) Inspect(ctx context.Context, runID string) (*domain.Run, error) {
	return e.runs.Load(ctx, runID)
}
