package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// attach runs the first actions of a new chromedp target. chromedp binds the
// browser process (first Run on a browser context) and a tab's event loop
// (first Run on a tab context) to the context passed to that Run, so run
// always receives targetCtx itself and never a derived context.
//
// Startup is bounded by a watchdog that cancels the whole target when timeout
// elapses or ctx is done first. Once run has returned the watchdog is
// disarmed and can no longer touch the target. A non-positive timeout only
// keeps the ctx watch.
func attach(ctx, targetCtx context.Context, cancelTarget context.CancelFunc, timeout time.Duration, run func(context.Context) error) error {
	var (
		mu       sync.Mutex
		finished bool
		fired    bool
	)
	watchdog := func() {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		fired = true
		cancelTarget()
	}

	stop := context.AfterFunc(ctx, watchdog)
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, watchdog)
	}

	err := run(targetCtx)

	mu.Lock()
	finished = true
	expired := fired
	mu.Unlock()
	stop()
	if timer != nil {
		timer.Stop()
	}

	switch {
	case expired && ctx.Err() != nil:
		return fmt.Errorf("startup interrupted: %w", ctx.Err())
	case expired:
		return fmt.Errorf("startup did not complete within %s: %w", timeout, context.DeadlineExceeded)
	case err != nil:
		cancelTarget()
		return err
	}
	return nil
}
