/*
Package stepflow is a small workflow graph engine: named steps transform a
shared State, a graph wires each step to at most one successor, and a run loop
drives the graph until a step sets State.Done or the path runs out.

# Concept

A graph is a fixed topology of nodes and single-successor edges plus a start
node. Cycles are allowed; they are how a refine/check loop is expressed. Each
run owns its State exclusively and is tracked in a run registry (in memory by
default, Redis optionally) holding the latest snapshot and a compact log with
the last log entry of every node execution.

Callers may pass a step observer to Run. It is called synchronously after each
node with a snapshot of the post-step state, and once more with the "END"
sentinel when the loop stops. An observer that fails is dropped; the run keeps
going.

# Usage

	engine := stepflow.New()

	graphID, err := engine.CreateGraph(ctx, summarize.KindOptionB)
	if err != nil {
		log.Fatal(err)
	}

	final, runID, err := engine.Run(ctx, graphID, domain.NewState(text, 50),
		func(ctx context.Context, node string, s *domain.State) error {
			fmt.Println("visited", node)
			return nil
		})

Custom graphs are built with the dsl package and registered with Register.
The same engine backs the HTTP/WebSocket server (pkg/adapters/http), the MCP
server (pkg/adapters/mcp) and the stepflow CLI.
*/
package stepflow
