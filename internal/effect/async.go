package effect

import "context"

// Pending is a settled-exactly-once container for an effect driven on its
// own goroutine - the promise shape the platform boundary expects.
//
// A Pending is created by Async and settles when the underlying Run
// returns. Awaiting after settlement returns the memoized outcome.
// Abandoning a Pending (awaiting with a cancelled context) leaves the
// underlying execution to settle independently; its result is discarded
// from the abandoning caller's perspective.
type Pending[A any] struct {
	done  chan struct{}
	value A
	err   error
}

// Async drives the effect on a new goroutine and returns its Pending.
// The passed context bounds the execution, not the await.
func Async[A any](ctx context.Context, e Effect[A]) *Pending[A] {
	p := &Pending[A]{done: make(chan struct{})}
	go func() {
		p.value, p.err = e.Run(ctx)
		close(p.done)
	}()
	return p
}

// Await blocks until the pending effect settles or awaitCtx is cancelled.
// Cancellation abandons the wait, not the execution.
func (p *Pending[A]) Await(awaitCtx context.Context) (A, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-awaitCtx.Done():
		var zero A
		return zero, NewDefect(awaitCtx.Err())
	}
}

// Settled reports whether the effect has finished without blocking.
func (p *Pending[A]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
