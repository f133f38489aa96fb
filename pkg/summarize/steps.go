package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/registry"
)

// Node names of the summarizer graph.
const (
	NodeSplitText         = "split_text"
	NodeGenerateSummaries = "generate_summaries"
	NodeMergeSummaries    = "merge_summaries"
	NodeRefineSummary     = "refine_summary"
	NodeCheckLength       = "check_length"
)

// MinDefaultMaxLength is the floor of the computed word target.
const MinDefaultMaxLength = 20

// Steps builds the summarizer steps on top of a tool registry.
type Steps struct {
	tools *registry.Registry
}

// NewSteps creates the step set. A nil registry uses DefaultTools.
func NewSteps(tools *registry.Registry) *Steps {
	if tools == nil {
		tools = DefaultTools()
	}
	return &Steps{tools: tools}
}

// SplitText splits the input on blank lines and fills in MaxLength when the
// caller left it unset. It completes asynchronously and leaves the state
// untouched when ctx is already done.
func (s *Steps) SplitText() domain.Step {
	return domain.Suspending(func(ctx context.Context, state *domain.State) <-chan domain.StepResult {
		out := make(chan domain.StepResult, 1)
		go func() {
			defer close(out)

			if err := ctx.Err(); err != nil {
				out <- domain.StepResult{Err: err}
				return
			}

			text := strings.TrimSpace(state.InputText)
			state.Chunks = SplitParagraphs(text)

			if state.MaxLength <= 0 {
				state.MaxLength = max(WordCount(text)/3, MinDefaultMaxLength)
			}

			state.Append(NodeSplitText, domain.LevelInfo, "Splitting text into chunks...", "")
			out <- domain.StepResult{State: state}
		}()
		return out
	})
}

// GenerateSummaries keeps the first ChunkSummaryWords words of every chunk.
func (s *Steps) GenerateSummaries() domain.Step {
	return domain.StepFunc(func(ctx context.Context, state *domain.State) (*domain.State, error) {
		state.Append(NodeGenerateSummaries, domain.LevelInfo, "Generating summaries for each chunk...", "")

		summaries := make([]string, 0, len(state.Chunks))
		for _, chunk := range state.Chunks {
			sum, err := registry.Call[string](ctx, s.tools, ToolSummarizeChunk, map[string]any{
				"chunk":     chunk,
				"max_words": ChunkSummaryWords,
			})
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, sum)
		}
		state.ChunkSummaries = summaries
		return state, nil
	})
}

// MergeSummaries joins the chunk summaries and seeds the refinement target.
func (s *Steps) MergeSummaries() domain.Step {
	return domain.StepFunc(func(ctx context.Context, state *domain.State) (*domain.State, error) {
		previews := make([]string, len(state.ChunkSummaries))
		for i, sum := range state.ChunkSummaries {
			previews[i] = head(sum, 100)
		}
		state.Append(NodeMergeSummaries, domain.LevelInfo, "Merging chunk summaries...", strings.Join(previews, "; "))

		merged, err := registry.Call[string](ctx, s.tools, ToolMerge, map[string]any{
			"summaries": state.ChunkSummaries,
		})
		if err != nil {
			return nil, err
		}
		state.MergedSummary = merged
		state.RefinedSummary = merged
		return state, nil
	})
}

// RefineSummary truncates the refined summary to MaxLength words.
func (s *Steps) RefineSummary() domain.Step {
	return domain.StepFunc(func(ctx context.Context, state *domain.State) (*domain.State, error) {
		state.Append(NodeRefineSummary, domain.LevelInfo, "Refining summary...", head(state.RefinedSummary, 200))

		refined, err := registry.Call[string](ctx, s.tools, ToolRefine, map[string]any{
			"summary":   state.RefinedSummary,
			"max_words": state.MaxLength,
		})
		if err != nil {
			return nil, err
		}
		state.RefinedSummary = refined
		return state, nil
	})
}

// CheckLength sets Done once the refined summary fits MaxLength.
func (s *Steps) CheckLength() domain.Step {
	return domain.StepFunc(func(ctx context.Context, state *domain.State) (*domain.State, error) {
		count := WordCount(state.RefinedSummary)
		preview := head(state.RefinedSummary, 200)

		if count <= state.MaxLength {
			state.Append(NodeCheckLength, domain.LevelInfo,
				fmt.Sprintf("Summary within limit (%d words). Finishing workflow.", count), preview)
			state.Done = true
		} else {
			state.Append(NodeCheckLength, domain.LevelInfo,
				fmt.Sprintf("Summary too long (%d words). Will refine again.", count), preview)
		}
		return state, nil
	})
}

// head returns at most n runes of s.
func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
