package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() domain.Step {
	return domain.StepFunc(func(ctx context.Context, s *domain.State) (*domain.State, error) {
		return s, nil
	})
}

func TestNewGraph_Valid(t *testing.T) {
	g, err := domain.NewGraph(
		map[string]domain.Step{"a": noop(), "b": noop()},
		map[string]string{"a": "b", "b": ""},
		"a",
	)
	require.NoError(t, err)

	assert.Equal(t, "a", g.Start())
	assert.Equal(t, []string{"a", "b"}, g.Nodes())

	next, ok := g.Next("a")
	assert.True(t, ok)
	assert.Equal(t, "b", next)

	_, ok = g.Next("b")
	assert.False(t, ok, "empty successor means terminal")

	_, ok = g.Step("missing")
	assert.False(t, ok)
}

func TestNewGraph_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		nodes map[string]domain.Step
		edges map[string]string
		start string
		want  string
	}{
		{
			name:  "missing start",
			nodes: map[string]domain.Step{"a": noop()},
			start: "zzz",
			want:  `start node "zzz"`,
		},
		{
			name:  "dangling edge target",
			nodes: map[string]domain.Step{"a": noop()},
			edges: map[string]string{"a": "ghost"},
			start: "a",
			want:  `edge target "ghost"`,
		},
		{
			name:  "unknown edge source",
			nodes: map[string]domain.Step{"a": noop()},
			edges: map[string]string{"ghost": "a"},
			start: "a",
			want:  `edge source "ghost"`,
		},
		{
			name:  "nil step",
			nodes: map[string]domain.Step{"a": nil},
			start: "a",
			want:  `nil step "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewGraph(tt.nodes, tt.edges, tt.start)
			require.ErrorIs(t, err, domain.ErrInvalidGraph)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGraph_EdgesIsACopy(t *testing.T) {
	g, err := domain.NewGraph(
		map[string]domain.Step{"a": noop(), "b": noop()},
		map[string]string{"a": "b"},
		"a",
	)
	require.NoError(t, err)

	edges := g.Edges()
	edges["a"] = "a"

	next, _ := g.Next("a")
	assert.Equal(t, "b", next)
}
