package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/ports"
	"github.com/google/uuid"
)

// Registry implements ports.GraphRegistry in memory.
// Graphs hold step implementations, so they are never serialized.
type Registry struct {
	mu     sync.RWMutex
	graphs map[string]ports.GraphEntry
}

// NewRegistry creates an empty graph registry.
func NewRegistry() *Registry {
	return &Registry{
		graphs: make(map[string]ports.GraphEntry),
	}
}

// Register stores the graph under a fresh random ID.
func (r *Registry) Register(ctx context.Context, kind string, graph *domain.Graph) (string, error) {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[id] = ports.GraphEntry{ID: id, Kind: kind, Graph: graph}
	return id, nil
}

// Get returns the registered graph.
func (r *Registry) Get(ctx context.Context, graphID string) (*ports.GraphEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.graphs[graphID]
	if !ok {
		return nil, domain.ErrGraphNotFound
	}
	return &entry, nil
}

// List returns all registered graphs sorted by ID.
func (r *Registry) List(ctx context.Context) ([]ports.GraphEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.GraphEntry, 0, len(r.graphs))
	for _, entry := range r.graphs {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
