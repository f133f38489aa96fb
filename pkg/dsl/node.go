package dsl

import (
	"context"

	"github.com/aretw0/stepflow/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	name    string
	step    domain.Step
	next    string
	builder *Builder
}

// Do sets the step executed by the node.
func (n *NodeBuilder) Do(step domain.Step) *NodeBuilder {
	n.step = step
	return n
}

// Func is Do for plain functions.
func (n *NodeBuilder) Func(fn func(ctx context.Context, state *domain.State) (*domain.State, error)) *NodeBuilder {
	return n.Do(domain.StepFunc(fn))
}

// Go sets the successor of the node. Loops are expressed by pointing back to an earlier node.
func (n *NodeBuilder) Go(next string) *NodeBuilder {
	n.next = next
	return n
}

// Then sets the successor and returns the builder of that node, for chaining linear flows.
func (n *NodeBuilder) Then(next string) *NodeBuilder {
	n.next = next
	return n.builder.Add(next)
}

// Terminal clears the successor.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.next = ""
	return n
}
