package domain

import "time"

// DefaultMaxLength is the word target applied when a caller omits max_length.
const DefaultMaxLength = 200

// State is the record threaded through every step of a run.
// It is owned by exactly one run at a time; steps mutate it in place.
type State struct {
	InputText string `json:"input_text"`

	// MaxLength is the word target. Steps may compute a default when it is not positive.
	MaxLength int `json:"max_length"`

	Chunks         []string `json:"chunks"`
	ChunkSummaries []string `json:"chunk_summaries"`
	MergedSummary  string   `json:"merged_summary"`
	RefinedSummary string   `json:"refined_summary"`

	// Done is the sole termination signal of the run loop.
	Done bool `json:"done"`

	// Log is append-only. Use Append to add entries.
	Log []LogEntry `json:"log"`

	// SelectedChunkIndex is carried through but not consumed by any step yet.
	SelectedChunkIndex *int `json:"selected_chunk_index,omitempty"`
}

// NewState creates a clean state for the given input.
func NewState(inputText string, maxLength int) *State {
	return &State{
		InputText:      inputText,
		MaxLength:      maxLength,
		Chunks:         []string{},
		ChunkSummaries: []string{},
		Log:            []LogEntry{},
	}
}

// Append adds a structured log entry stamped with the current UTC time and returns it.
func (s *State) Append(node string, level LogLevel, msg, preview string) LogEntry {
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Node:      node,
		Level:     level,
		Message:   msg,
		Preview:   preview,
	}
	s.Log = append(s.Log, entry)
	return entry
}

// LastLog returns the most recent log entry, if any.
func (s *State) LastLog() (LogEntry, bool) {
	if len(s.Log) == 0 {
		return LogEntry{}, false
	}
	return s.Log[len(s.Log)-1], true
}

// Snapshot returns a deep copy of the state.
// Registries and observers hold snapshots so they never alias the running state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Chunks = cloneStrings(s.Chunks)
	c.ChunkSummaries = cloneStrings(s.ChunkSummaries)
	c.Log = make([]LogEntry, len(s.Log))
	copy(c.Log, s.Log)
	if s.SelectedChunkIndex != nil {
		idx := *s.SelectedChunkIndex
		c.SelectedChunkIndex = &idx
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
