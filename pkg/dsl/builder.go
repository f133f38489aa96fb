package dsl

import (
	"fmt"

	"github.com/aretw0/stepflow/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	nodes map[string]*NodeBuilder
	order []string
	start string
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
// The first node added becomes the start node unless Start is called.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		name:    name,
		builder: b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// Start overrides the entry node.
func (b *Builder) Start(name string) *Builder {
	b.start = name
	return b
}

// Build compiles the graph. Topology errors are reported by domain.NewGraph.
func (b *Builder) Build() (*domain.Graph, error) {
	if len(b.order) == 0 {
		return nil, fmt.Errorf("%w: no nodes", domain.ErrInvalidGraph)
	}
	start := b.start
	if start == "" {
		start = b.order[0]
	}

	nodes := make(map[string]domain.Step, len(b.nodes))
	edges := make(map[string]string, len(b.nodes))
	for name, nb := range b.nodes {
		nodes[name] = nb.step
		if nb.next != "" {
			edges[name] = nb.next
		}
	}

	return domain.NewGraph(nodes, edges, start)
}
