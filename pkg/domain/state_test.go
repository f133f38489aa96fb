package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Append(t *testing.T) {
	s := domain.NewState("text", 10)

	_, ok := s.LastLog()
	assert.False(t, ok)

	first := s.Append("a", domain.LevelInfo, "one", "")
	second := s.Append("b", domain.LevelWarn, "two", "p")

	require.Len(t, s.Log, 2)
	assert.Equal(t, first, s.Log[0])
	assert.Equal(t, second, s.Log[1])
	assert.Equal(t, time.UTC, second.Timestamp.Location())

	last, ok := s.LastLog()
	require.True(t, ok)
	assert.Equal(t, "b", last.Node)
	assert.Equal(t, "p", last.Preview)
}

func TestState_SnapshotIsolation(t *testing.T) {
	idx := 1
	s := domain.NewState("text", 10)
	s.Chunks = []string{"a", "b"}
	s.SelectedChunkIndex = &idx
	s.Append("n", domain.LevelInfo, "m", "")

	snap := s.Snapshot()
	require.Equal(t, s, snap)

	s.Chunks[0] = "changed"
	s.Log[0].Message = "changed"
	*s.SelectedChunkIndex = 7
	s.Append("n", domain.LevelInfo, "more", "")

	assert.Equal(t, "a", snap.Chunks[0])
	assert.Equal(t, "m", snap.Log[0].Message)
	assert.Len(t, snap.Log, 1)
	assert.Equal(t, 1, *snap.SelectedChunkIndex)

	var nilState *domain.State
	assert.Nil(t, nilState.Snapshot())
}

func TestSuspending(t *testing.T) {
	step := domain.Suspending(func(ctx context.Context, s *domain.State) <-chan domain.StepResult {
		ch := make(chan domain.StepResult, 1)
		go func() {
			time.Sleep(10 * time.Millisecond)
			s.Done = true
			ch <- domain.StepResult{State: s}
		}()
		return ch
	})

	out, err := step.Execute(context.Background(), domain.NewState("", 0))
	require.NoError(t, err)
	assert.True(t, out.Done, "caller must observe the completed work")

	t.Run("Error", func(t *testing.T) {
		boom := errors.New("boom")
		failing := domain.Suspending(func(ctx context.Context, s *domain.State) <-chan domain.StepResult {
			ch := make(chan domain.StepResult, 1)
			ch <- domain.StepResult{Err: boom}
			return ch
		})
		_, err := failing.Execute(context.Background(), domain.NewState("", 0))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Closed", func(t *testing.T) {
		closed := domain.Suspending(func(ctx context.Context, s *domain.State) <-chan domain.StepResult {
			ch := make(chan domain.StepResult)
			close(ch)
			return ch
		})
		_, err := closed.Execute(context.Background(), domain.NewState("", 0))
		assert.ErrorIs(t, err, domain.ErrNilState)
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		watching := domain.Suspending(func(ctx context.Context, s *domain.State) <-chan domain.StepResult {
			ch := make(chan domain.StepResult, 1)
			go func() {
				<-ctx.Done()
				ch <- domain.StepResult{Err: ctx.Err()}
			}()
			return ch
		})
		_, err := watching.Execute(ctx, domain.NewState("", 0))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("CanceledWaitsForCompletion", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		state := domain.NewState("", 0)
		slow := domain.Suspending(func(ctx context.Context, s *domain.State) <-chan domain.StepResult {
			ch := make(chan domain.StepResult, 1)
			go func() {
				cancel()
				time.Sleep(30 * time.Millisecond)
				s.RefinedSummary = "written by step"
				ch <- domain.StepResult{State: s}
			}()
			return ch
		})

		out, err := slow.Execute(ctx, state)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, out)
		// The step finished before Execute returned, so this read does not race.
		assert.Equal(t, "written by step", state.RefinedSummary)
	})
}

func TestNodeExecutionError(t *testing.T) {
	err := error(&domain.NodeExecutionError{Node: "x", Cause: domain.ErrNodeMissing})
	assert.ErrorIs(t, err, domain.ErrNodeMissing)
	assert.Equal(t, `node "x" failed: node missing from graph`, err.Error())

	var nodeErr *domain.NodeExecutionError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "x", nodeErr.Node)
}
