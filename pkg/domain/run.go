package domain

import (
	"context"
	"time"
)

// EndNode is the sentinel node name passed to observers once a run stops advancing.
const EndNode = "END"

// RunStatus is the lifecycle phase of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the registry record for one execution of a graph.
type Run struct {
	ID      string    `json:"run_id"`
	GraphID string    `json:"graph_id"`
	Status  RunStatus `json:"status"`
	Error   string    `json:"error,omitempty"`

	// State is the latest snapshot, overwritten after every node.
	State *State `json:"state"`

	// Log holds the last log entry of every node execution that had one.
	Log []LogEntry `json:"log"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone deep-copies the record.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	c.State = r.State.Snapshot()
	c.Log = make([]LogEntry, len(r.Log))
	copy(c.Log, r.Log)
	return &c
}

type runIDKey struct{}

// ContextWithRunID returns a copy of ctx carrying the run identifier.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the identifier of the run executing under ctx, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}
