package ports

import (
	"context"

	"github.com/aretw0/stepflow/pkg/domain"
)

// RunStore is the run registry: latest state snapshot plus compact log per run.
// Implementations must be safe for concurrent use by many runs.
type RunStore interface {
	// Create registers a new run with its initial state and an empty compact log.
	Create(ctx context.Context, run *domain.Run) error

	// SaveSnapshot overwrites the latest state snapshot for the run.
	// Returns domain.ErrRunNotFound if the run does not exist.
	SaveSnapshot(ctx context.Context, runID string, state *domain.State) error

	// AppendLog appends one entry to the run's compact log.
	// Returns domain.ErrRunNotFound if the run does not exist.
	AppendLog(ctx context.Context, runID string, entry domain.LogEntry) error

	// Finish records the terminal status of the run and an optional error message.
	Finish(ctx context.Context, runID string, status domain.RunStatus, errMsg string) error

	// Load retrieves the full run record.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Run, error)

	// List returns the IDs of known runs.
	List(ctx context.Context) ([]string, error)
}

// GraphEntry is a registered graph together with the kind it was built from.
type GraphEntry struct {
	ID    string
	Kind  string
	Graph *domain.Graph
}

// GraphRegistry stores built graphs by generated ID.
type GraphRegistry interface {
	// Register stores the graph and returns its generated ID.
	Register(ctx context.Context, kind string, graph *domain.Graph) (string, error)

	// Get returns domain.ErrGraphNotFound for unknown IDs.
	Get(ctx context.Context, graphID string) (*GraphEntry, error)

	List(ctx context.Context) ([]GraphEntry, error)
}
