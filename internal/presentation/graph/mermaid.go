package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepflow/pkg/domain"
)

// GraphOverlay contains run data to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart for g.
// Shapes:
// - Start: ((Circle))
// - Terminal (no successor): ([Stadium]), with an edge into END
// - Default: [Rectangle]
// Edges that jump back to an earlier node along the start path are dotted
// and labelled as loops.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	order := walkOrder(g)
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}

	terminal := false
	for _, name := range order {
		safeID := sanitizeMermaidID(name)
		next, hasNext := g.Next(name)

		opener, closer := "[", "]"
		switch {
		case name == g.Start():
			opener, closer = "((", "))"
		case !hasNext:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, name, closer)

		if !hasNext {
			terminal = true
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, domain.EndNode)
			continue
		}

		arrow := "-->"
		if r, ok := rank[next]; ok && r <= rank[name] {
			arrow = "-. \"loop\" .->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(next))
	}
	if terminal {
		fmt.Fprintf(&sb, "    %s((\"%s\"))\n", domain.EndNode, domain.EndNode)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// walkOrder lists nodes along the successor chain from the start node, then
// any node the chain never reaches, in name order.
func walkOrder(g *domain.Graph) []string {
	seen := make(map[string]bool)
	var order []string
	for cur := g.Start(); cur != "" && !seen[cur]; {
		seen[cur] = true
		order = append(order, cur)
		cur, _ = g.Next(cur)
	}
	for _, name := range g.Nodes() {
		if !seen[name] {
			order = append(order, name)
		}
	}
	return order
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
