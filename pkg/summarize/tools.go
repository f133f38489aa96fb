package summarize

import (
	"context"
	"strings"

	"github.com/aretw0/stepflow/pkg/registry"
)

// Tool names registered by DefaultTools.
const (
	ToolSplitText      = "split_text"
	ToolSummarizeChunk = "summarize_chunk"
	ToolMerge          = "merge_summaries"
	ToolRefine         = "refine_summary"
)

// ChunkSummaryWords is the per-chunk summary length used by generate_summaries.
const ChunkSummaryWords = 50

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// SplitWords groups the words of text into chunks of at most chunkSize words.
func SplitWords(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	words := strings.Fields(text)
	chunks := make([]string, 0, (len(words)+chunkSize-1)/chunkSize)
	for i := 0; i < len(words); i += chunkSize {
		end := min(i+chunkSize, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// SplitParagraphs splits text on blank lines, trimming and dropping empty paragraphs.
func SplitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SummarizeChunk keeps the first maxWords words of chunk.
func SummarizeChunk(chunk string, maxWords int) string {
	words := strings.Fields(chunk)
	return strings.Join(words[:min(max(maxWords, 0), len(words))], " ")
}

// MergeSummaries joins summaries with single spaces.
func MergeSummaries(summaries []string) string {
	return strings.Join(summaries, " ")
}

// RefineSummary truncates summary to maxWords words.
// A summary already within the limit is returned unchanged, so refining never
// increases the word count.
func RefineSummary(summary string, maxWords int) string {
	words := strings.Fields(summary)
	if len(words) <= maxWords {
		return summary
	}
	return strings.Join(words[:max(maxWords, 0)], " ")
}

type splitArgs struct {
	Text      string `mapstructure:"text"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

type summarizeArgs struct {
	Chunk    string `mapstructure:"chunk"`
	MaxWords int    `mapstructure:"max_words"`
}

type mergeArgs struct {
	Summaries []string `mapstructure:"summaries"`
}

type refineArgs struct {
	Summary  string `mapstructure:"summary"`
	MaxWords int    `mapstructure:"max_words"`
}

// DefaultTools returns a registry holding the text tools used by the summarizer steps.
func DefaultTools() *registry.Registry {
	r := registry.NewRegistry()
	r.Register(ToolSplitText, registry.Typed(func(ctx context.Context, a splitArgs) ([]string, error) {
		return SplitWords(a.Text, a.ChunkSize), nil
	}))
	r.Register(ToolSummarizeChunk, registry.Typed(func(ctx context.Context, a summarizeArgs) (string, error) {
		return SummarizeChunk(a.Chunk, a.MaxWords), nil
	}))
	r.Register(ToolMerge, registry.Typed(func(ctx context.Context, a mergeArgs) (string, error) {
		return MergeSummaries(a.Summaries), nil
	}))
	r.Register(ToolRefine, registry.Typed(func(ctx context.Context, a refineArgs) (string, error) {
		return RefineSummary(a.Summary, a.MaxWords), nil
	}))
	return r
}
