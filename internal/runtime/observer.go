package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/stepflow/pkg/domain"
)

// observer wraps the caller's step callback. Callbacks receive a snapshot, so
// they cannot reach into the running state. The first failure marks the
// observer gone and later notifications are skipped; the run never sees the error.
type observer struct {
	fn     domain.StepObserver
	gone   bool
	logger *slog.Logger
}

func (o *observer) notify(ctx context.Context, node string, state *domain.State) {
	if o.fn == nil || o.gone {
		return
	}
	if err := o.call(ctx, node, state.Snapshot()); err != nil {
		o.gone = true
		o.logger.Warn("Observer gone, continuing run without it", "node", node, "error", err)
	}
}

func (o *observer) call(ctx context.Context, node string, state *domain.State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return o.fn(ctx, node, state)
}
