package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/stepflow/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use. Records live for the lifetime of the process.
type Store struct {
	data map[string]*domain.Run
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Run),
	}
}

// Create registers the run. The record is deep-copied so the caller keeps its own state.
func (s *Store) Create(ctx context.Context, run *domain.Run) error {
	copied := run.Clone()
	if copied.Log == nil {
		copied.Log = []domain.LogEntry{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = copied
	return nil
}

// SaveSnapshot overwrites the latest state of the run.
func (s *Store) SaveSnapshot(ctx context.Context, runID string, state *domain.State) error {
	snap := state.Snapshot()

	return s.update(runID, func(r *domain.Run) {
		r.State = snap
	})
}

// AppendLog appends an entry to the compact log.
func (s *Store) AppendLog(ctx context.Context, runID string, entry domain.LogEntry) error {
	return s.update(runID, func(r *domain.Run) {
		r.Log = append(r.Log, entry)
	})
}

// Finish records the terminal status.
func (s *Store) Finish(ctx context.Context, runID string, status domain.RunStatus, errMsg string) error {
	return s.update(runID, func(r *domain.Run) {
		r.Status = status
		r.Error = errMsg
	})
}

func (s *Store) update(runID string, fn func(*domain.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.data[runID]
	if !ok {
		return domain.ErrRunNotFound
	}
	fn(run)
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// Load retrieves a copy of the run so the caller can't mutate the store by pointer.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

// List returns known run IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
