package browser

import (
	"context"
	"time"
)

// CombineContext returns a context that carries the values and deadline of
// primary and is additionally canceled when op is done. chromedp keeps its
// target handle in context values, so protocol calls must derive from the tab
// context while honoring the caller's deadline.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	if op.Done() == nil {
		return combined, cancel
	}
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with the values of ctx but none of its cancellation.
// The browser allocator outlives the request that launched it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
