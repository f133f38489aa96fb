package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepflow/pkg/domain"
)

// guardHooks wraps every hook so a panic is logged instead of unwinding the
// run goroutine. A hook that panics is still called for later events.
func guardHooks(h domain.LifecycleHooks, logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart:  guard("on_run_start", h.OnRunStart, logger),
		OnNodeEnter: guard("on_node_enter", h.OnNodeEnter, logger),
		OnNodeLeave: guard("on_node_leave", h.OnNodeLeave, logger),
		OnRunFinish: guard("on_run_finish", h.OnRunFinish, logger),
	}
}

func guard[E any](name string, fn func(context.Context, E), logger *slog.Logger) func(context.Context, E) {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, event E) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("Lifecycle hook panicked", "hook", name, "panic", r)
			}
		}()
		fn(ctx, event)
	}
}
