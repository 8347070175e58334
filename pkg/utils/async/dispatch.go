package async

import (
	"context"
	"sync"

	"github.com/secmon-lab/gapcheck/pkg/utils/errutil"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

// Tracker runs background tasks and lets the owner wait for them, e.g. before a
// one-shot command exits. The zero value is ready to use.
type Tracker struct {
	wg sync.WaitGroup
}

// Dispatch runs handler in its own goroutine on a context detached from the caller's
// cancellation. The caller's logger is kept and the task name is attached to it.
// Errors and panics are logged and reported, never returned.
func (t *Tracker) Dispatch(ctx context.Context, task string, handler func(ctx context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		run(ctx, task, handler)
	}()
}

// Wait blocks until every dispatched task has returned
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func run(ctx context.Context, task string, handler func(ctx context.Context) error) {
	logger := logging.From(ctx).With("task", task)
	bgCtx := logging.With(context.WithoutCancel(ctx), logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in async task", "panic", r)
		}
	}()

	if err := handler(bgCtx); err != nil {
		errutil.Handle(bgCtx, err, "async task failed")
	}
}
