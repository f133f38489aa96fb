package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// If the renderer cannot be built the markdown is returned unchanged.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// SummaryMarkdown formats the outcome of a summarizer run.
func SummaryMarkdown(runID string, st *domain.State) string {
	var sb strings.Builder
	sb.WriteString("# Summary\n\n")
	if st.RefinedSummary == "" {
		sb.WriteString("_empty_\n")
	} else {
		sb.WriteString(st.RefinedSummary + "\n")
	}

	fmt.Fprintf(&sb, "\n## Run\n\n")
	fmt.Fprintf(&sb, "- **run id**: `%s`\n", runID)
	fmt.Fprintf(&sb, "- **chunks**: %d\n", len(st.Chunks))
	fmt.Fprintf(&sb, "- **max length**: %d words\n", st.MaxLength)
	fmt.Fprintf(&sb, "- **done**: %t\n", st.Done)

	if len(st.Log) > 0 {
		sb.WriteString("\n## Log\n\n| node | level | message |\n|---|---|---|\n")
		for _, e := range st.Log {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", e.Node, e.Level, strings.ReplaceAll(e.Message, "|", "\\|"))
		}
	}
	return sb.String()
}
