package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventRunFinish EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	GraphID   string    `json:"graph_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Duration time.Duration `json:"duration,omitempty"` // set on leave
	Err      error         `json:"-"`
}

// RunEvent marks the start or end of a run.
type RunEvent struct {
	EventBase
	Status RunStatus `json:"status"`
	Steps  int       `json:"steps"`
	Err    error     `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the run's goroutine and must not block. The
// engine recovers a panicking hook and keeps the run going.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnRunFinish func(context.Context, *RunEvent)
}

// StepObserver receives the post-execution state after every node and once
// more with EndNode when the run stops advancing. Returning an error marks the
// observer as gone; the run continues without it.
type StepObserver func(ctx context.Context, node string, state *State) error
