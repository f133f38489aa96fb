package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stepflow/internal/presentation/graph"
	"github.com/aretw0/stepflow/internal/presentation/tui"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/observability"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Summarize a text file (or stdin) by running a graph",
	Long: `Builds a graph of the given kind, runs it over the input text and prints the
refined summary. Step progress is written to stderr as it happens.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		maxLength, _ := cmd.Flags().GetInt("max-length")
		showGraph, _ := cmd.Flags().GetBool("mermaid")

		input, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, cleanup, err := newEngine(ctx, cfg, observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		defer cleanup()

		graphID, err := engine.CreateGraph(ctx, kind)
		if err != nil {
			return err
		}

		progress := cmd.ErrOrStderr()
		final, runID, err := engine.Run(ctx, graphID, domain.NewState(input, maxLength),
			func(ctx context.Context, node string, st *domain.State) error {
				if entry, ok := st.LastLog(); ok && node != domain.EndNode {
					_, err := fmt.Fprintf(progress, "[%s] %s\n", entry.Node, entry.Message)
					return err
				}
				return nil
			})
		if err != nil {
			return fmt.Errorf("run %s failed: %w", runID, err)
		}

		out := cmd.OutOrStdout()
		if isTerminal(out) {
			rendered, err := tui.NewRenderer()(tui.SummaryMarkdown(runID, final))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
		} else {
			fmt.Fprintln(out, final.RefinedSummary)
		}

		if showGraph {
			entry, err := engine.Graph(ctx, graphID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, graph.GenerateMermaid(entry.Graph, overlayFor(final)))
		}
		return nil
	},
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// overlayFor marks every node that logged during the run as visited.
func overlayFor(st *domain.State) *graph.GraphOverlay {
	overlay := &graph.GraphOverlay{}
	seen := make(map[string]bool)
	for _, e := range st.Log {
		if !seen[e.Node] {
			seen[e.Node] = true
			overlay.VisitedNodes = append(overlay.VisitedNodes, e.Node)
		}
		overlay.CurrentNode = e.Node
	}
	return overlay
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("kind", "option_b", "Graph kind to run")
	runCmd.Flags().Int("max-length", domain.DefaultMaxLength, "Target summary length in words (0 derives it from the input)")
	runCmd.Flags().Bool("mermaid", false, "Also print the graph as a Mermaid diagram with visited nodes highlighted")
}
