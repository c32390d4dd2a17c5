package ctxsync

import (
	"context"
	"sync"
)

// NewWaitGroup creates a new WaitGroup. The zero value is also ready to use.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{}
}

// A WaitGroup waits for a collection of goroutines to finish, like
// [sync.WaitGroup], but the wait can be abandoned through a context.
type WaitGroup struct {
	mu    sync.Mutex
	count int
	// done is open while count is positive.
	done chan struct{}
}

// Add adds delta, which may be negative, to the [WaitGroup] counter.
// If the counter becomes zero, all goroutines blocked on [WaitGroup.Wait] are
// released. If the counter goes negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	if wg.count == 0 && delta > 0 {
		wg.done = make(chan struct{})
	}
	wg.count += delta
	if wg.count < 0 {
		panic("ctxsync: negative WaitGroup counter")
	}
	if wg.count == 0 && wg.done != nil {
		close(wg.done)
		wg.done = nil
	}
}

// Done decrements the [WaitGroup] counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks until the WaitGroup counter is zero.
func (wg *WaitGroup) Wait() {
	_ = wg.WaitWithContext(context.Background())
}

// WaitWithContext blocks until the WaitGroup counter is zero or the context is
// done, returning the context error in the latter case.
func (wg *WaitGroup) WaitWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wg.mu.Lock()
	done := wg.done
	wg.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Go calls f in a new goroutine and adds that task to the [WaitGroup].
// When f returns, the task is removed from the WaitGroup.
func (wg *WaitGroup) Go(f func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		f()
	}()
}
