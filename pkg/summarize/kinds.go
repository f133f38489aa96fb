package summarize

import (
	"fmt"
	"sort"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/dsl"
	"github.com/aretw0/stepflow/pkg/registry"
)

// KindOptionB is the split → summarize → merge → refine/check loop.
const KindOptionB = "option_b"

// Builder produces a fresh graph instance.
type Builder func() (*domain.Graph, error)

// Catalog maps graph kinds to builders.
type Catalog struct {
	builders map[string]Builder
}

// NewCatalog returns a catalog holding every built-in kind, backed by tools.
// A nil registry uses DefaultTools.
func NewCatalog(tools *registry.Registry) *Catalog {
	steps := NewSteps(tools)
	return &Catalog{
		builders: map[string]Builder{
			KindOptionB: func() (*domain.Graph, error) { return NewOptionBGraph(steps) },
		},
	}
}

// Kinds lists supported kinds.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.builders))
	for k := range c.builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs a new graph of the given kind.
func (c *Catalog) Build(kind string) (*domain.Graph, error) {
	build, ok := c.builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", domain.ErrUnsupportedGraphKind, kind, c.Kinds())
	}
	return build()
}

// NewOptionBGraph wires the summarizer steps:
// split_text → generate_summaries → merge_summaries → refine_summary → check_length,
// with check_length looping back to refine_summary until it sets Done.
func NewOptionBGraph(steps *Steps) (*domain.Graph, error) {
	b := dsl.New()

	b.Add(NodeSplitText).Do(steps.SplitText()).
		Then(NodeGenerateSummaries).Do(steps.GenerateSummaries()).
		Then(NodeMergeSummaries).Do(steps.MergeSummaries()).
		Then(NodeRefineSummary).Do(steps.RefineSummary()).
		Then(NodeCheckLength).Do(steps.CheckLength()).
		Go(NodeRefineSummary)

	return b.Build()
}
