package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is an immutable set of named steps wired by single-successor edges.
type Graph struct {
	nodes map[string]Step
	edges map[string]string
	start string
}

// NewGraph builds a graph and validates that the start node and every edge
// endpoint exist in nodes. A node without an entry in edges is terminal.
func NewGraph(nodes map[string]Step, edges map[string]string, start string) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]Step, len(nodes)),
		edges: make(map[string]string, len(edges)),
		start: start,
	}
	for name, step := range nodes {
		g.nodes[name] = step
	}
	for from, to := range edges {
		if to == "" {
			continue
		}
		g.edges[from] = to
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) validate() error {
	var problems []string
	if _, ok := g.nodes[g.start]; !ok {
		problems = append(problems, fmt.Sprintf("start node %q", g.start))
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge source %q", from))
		}
		if _, ok := g.nodes[to]; !ok {
			problems = append(problems, fmt.Sprintf("edge target %q", to))
		}
	}
	for name, step := range g.nodes {
		if step == nil {
			problems = append(problems, fmt.Sprintf("nil step %q", name))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: unknown %s", ErrInvalidGraph, strings.Join(problems, ", "))
	}
	return nil
}

// Start returns the entry node name.
func (g *Graph) Start() string {
	return g.start
}

// Step looks up the step registered under name.
func (g *Graph) Step(name string) (Step, bool) {
	s, ok := g.nodes[name]
	return s, ok
}

// Next returns the successor of name. ok is false when name is terminal.
func (g *Graph) Next(name string) (string, bool) {
	next, ok := g.edges[name]
	return next, ok
}

// Nodes returns node names in sorted order.
func (g *Graph) Nodes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Edges returns a copy of the successor mapping.
func (g *Graph) Edges() map[string]string {
	out := make(map[string]string, len(g.edges))
	for k, v := range g.edges {
		out[k] = v
	}
	return out
}
