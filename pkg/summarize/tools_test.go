package summarize_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/stepflow/pkg/registry"
	"github.com/aretw0/stepflow/pkg/summarize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitParagraphs(t *testing.T) {
	assert.Equal(t, []string{"alpha beta gamma", "delta epsilon"},
		summarize.SplitParagraphs("alpha beta gamma\n\ndelta epsilon"))
	assert.Equal(t, []string{"one", "two"},
		summarize.SplitParagraphs("  one \n\n\n\n two\n\n"))
	assert.Empty(t, summarize.SplitParagraphs(""))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a b", "c d", "e"}, summarize.SplitWords("a b c d e", 2))
	assert.Empty(t, summarize.SplitWords("   ", 2))
}

func TestSummarizeChunk(t *testing.T) {
	long := strings.Repeat("w ", 60)
	assert.Equal(t, 50, summarize.WordCount(summarize.SummarizeChunk(long, summarize.ChunkSummaryWords)))
	assert.Equal(t, "a b", summarize.SummarizeChunk("a  b", 10))
	assert.Equal(t, "", summarize.SummarizeChunk("a b", 0))
}

func TestRefineSummary_NeverGrows(t *testing.T) {
	once := summarize.RefineSummary("one two three four", 2)
	assert.Equal(t, "one two", once)
	assert.Equal(t, once, summarize.RefineSummary(once, 2))

	// Within the limit the text is returned untouched, spacing included.
	assert.Equal(t, "one  two", summarize.RefineSummary("one  two", 5))
}

func TestDefaultTools(t *testing.T) {
	tools := summarize.DefaultTools()
	ctx := context.Background()

	assert.Equal(t, []string{
		summarize.ToolMerge,
		summarize.ToolRefine,
		summarize.ToolSplitText,
		summarize.ToolSummarizeChunk,
	}, tools.Names())

	chunks, err := registry.Call[[]string](ctx, tools, summarize.ToolSplitText, map[string]any{
		"text":       "a b c",
		"chunk_size": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "c"}, chunks)

	merged, err := registry.Call[string](ctx, tools, summarize.ToolMerge, map[string]any{
		"summaries": []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a b", merged)
}
