package domain

import "context"

// Step is a single unit of work in a graph.
// Implementations may mutate the given state in place and/or return a new one;
// the caller always treats the returned state as authoritative.
type Step interface {
	Execute(ctx context.Context, state *State) (*State, error)
}

// StepFunc adapts an ordinary function to the Step interface.
type StepFunc func(ctx context.Context, state *State) (*State, error)

// Execute calls f(ctx, state).
func (f StepFunc) Execute(ctx context.Context, state *State) (*State, error) {
	return f(ctx, state)
}

// StepResult is delivered by a suspending step when its work completes.
type StepResult struct {
	State *State
	Err   error
}

// Suspending adapts a step that completes asynchronously.
// The returned Step blocks until the result arrives, so callers never observe
// the difference between the two execution modes. When ctx is done first the
// adapter still waits for the step to deliver, then reports ctx.Err(): the
// state is never touched by the step after Execute returns. Implementations
// should watch ctx and deliver promptly once it is done.
func Suspending(start func(ctx context.Context, state *State) <-chan StepResult) Step {
	return StepFunc(func(ctx context.Context, state *State) (*State, error) {
		results := start(ctx, state)
		select {
		case res, ok := <-results:
			if !ok {
				return nil, ErrNilState
			}
			return res.State, res.Err
		case <-ctx.Done():
			<-results
			return nil, ctx.Err()
		}
	})
}
