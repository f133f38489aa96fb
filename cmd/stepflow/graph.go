package main

import (
	"fmt"

	"github.com/aretw0/stepflow/internal/presentation/graph"
	"github.com/aretw0/stepflow/pkg/summarize"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [kind]",
	Short: "Export a graph kind as a Mermaid diagram",
	Long:  `Builds the graph of the given kind (default option_b) and prints a Mermaid flowchart (graph TD).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := summarize.KindOptionB
		if len(args) > 0 {
			kind = args[0]
		}

		g, err := summarize.NewCatalog(nil).Build(kind)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
