package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/stepflow/pkg/domain"
)

// execute runs a single step to completion and normalizes every failure mode
// into a NodeExecutionError.
func execute(ctx context.Context, name string, step domain.Step, state *domain.State) (next *domain.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = &domain.NodeExecutionError{Node: name, Cause: fmt.Errorf("%w: %v", domain.ErrStepPanicked, r)}
		}
	}()

	next, err = step.Execute(ctx, state)
	if err != nil {
		return nil, &domain.NodeExecutionError{Node: name, Cause: err}
	}
	if next == nil {
		return nil, &domain.NodeExecutionError{Node: name, Cause: domain.ErrNilState}
	}
	return next, nil
}
