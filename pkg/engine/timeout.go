package engine

import (
	"context"
	"errors"
	"time"

	"github.com/chazu/meshbool/pkg/kernel"
)

// EvalTimeout is the default hard limit for a single engine call.
const EvalTimeout = 2 * time.Minute

// guard runs one kernel call in its own goroutine so that a panic or a
// call that never returns cannot take the pipeline down with it. A panic
// becomes a Failure; so does running past the timeout.
//
// On timeout the goroutine may still be running. Its context is cancelled
// and the buffered channel lets it finish and exit; the late result is
// discarded.
func guard(ctx context.Context, k kernel.Kernel, a, b kernel.Mesh, op kernel.Op, timeout time.Duration) kernel.Result {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	ch := make(chan kernel.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- kernel.Failure("panic during evaluation: %v", r)
			}
		}()
		ch <- k.Boolean(ctx, a, b, op)
	}()

	return waitWithTimeout(ctx, ch, timeout)
}

// waitWithTimeout waits for a result from ch, but returns a Failure once
// ctx is done.
func waitWithTimeout(ctx context.Context, ch <-chan kernel.Result, timeout time.Duration) kernel.Result {
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return kernel.Failure("evaluation timed out after %s", timeout)
		}
		return kernel.Failure("evaluation cancelled: %v", ctx.Err())
	}
}
