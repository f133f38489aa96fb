package http

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	initWait       = 30 * time.Second
	maxMessageSize = 1 << 20
	wsBufferSize   = 1024
	previewRunes   = 300
)

// Stream event names.
const (
	EventStep     = "step"
	EventFinished = "finished"
	EventError    = "error"
)

const msgGraphNotFound = "Graph not found or graph_id missing"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamEvent is a server-to-client message on /ws/run.
type StreamEvent struct {
	Event string `json:"event"`

	// step
	RunID    string           `json:"run_id,omitempty"`
	Node     string           `json:"node,omitempty"`
	LogEntry *domain.LogEntry `json:"log_entry,omitempty"`
	Done     *bool            `json:"done,omitempty"`
	Preview  *string          `json:"refined_summary_preview,omitempty"`

	// finished
	FinalState *domain.State `json:"final_state,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// StreamRun handles GET /ws/run.
//
// The client sends a single RunGraphRequest; the server streams one "step"
// event per executed node plus one for the END sentinel, then "finished". A
// client that goes away stops receiving events but the run itself completes
// and stays retrievable through /graph/state/{run_id}.
func (s *Server) StreamRun(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(initWait))

	var req RunGraphRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warn("StreamRun: Invalid init message", "error", err)
		s.send(conn, StreamEvent{Event: EventError, Message: "Invalid init message: " + err.Error()})
		closeNormal(conn)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if req.GraphID == "" {
		s.send(conn, StreamEvent{Event: EventError, Message: msgGraphNotFound})
		closeNormal(conn)
		return
	}
	if _, err := s.Engine.Graph(ctx, req.GraphID); err != nil {
		s.send(conn, StreamEvent{Event: EventError, Message: msgGraphNotFound})
		closeNormal(conn)
		return
	}

	onStep := func(ctx context.Context, node string, state *domain.State) error {
		runID, _ := domain.RunIDFromContext(ctx)
		ev := StreamEvent{
			Event:   EventStep,
			RunID:   runID,
			Node:    node,
			Done:    &state.Done,
			Preview: ptr(Preview(state.RefinedSummary)),
		}
		if last, ok := state.LastLog(); ok {
			ev.LogEntry = &last
		}
		return s.write(conn, ev)
	}

	final, runID, err := s.Engine.Run(ctx, req.GraphID, req.State(), onStep)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrGraphNotFound) {
			msg = msgGraphNotFound
		}
		s.send(conn, StreamEvent{Event: EventError, RunID: runID, Message: msg})
		closeNormal(conn)
		return
	}

	s.send(conn, StreamEvent{Event: EventFinished, RunID: runID, FinalState: final})
	closeNormal(conn)
}

// Preview returns the first 300 characters of summary, with "..." appended
// when it was cut.
func Preview(summary string) string {
	if utf8.RuneCountInString(summary) <= previewRunes {
		return summary
	}
	return string([]rune(summary)[:previewRunes]) + "..."
}

func (s *Server) write(conn *websocket.Conn, ev StreamEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// send writes ev and only logs failures; the peer may already be gone.
func (s *Server) send(conn *websocket.Conn, ev StreamEvent) {
	if err := s.write(conn, ev); err != nil {
		s.logger.Debug("WebSocket write failed", "event", ev.Event, "error", err)
	}
}

func closeNormal(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func ptr[T any](v T) *T {
	return &v
}
