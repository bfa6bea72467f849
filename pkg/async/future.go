package async

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Future represents the result of an asynchronous computation.
// A Future settles exactly once; every Await observes the same value and error.
type Future[U any] struct {
	value U
	err   error
	once  sync.Once
	done  chan struct{}
}

func newFuture[U any]() *Future[U] {
	return &Future[U]{done: make(chan struct{})}
}

// settle stores the outcome. Later calls are ignored.
func (f *Future[U]) settle(value U, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Await waits for the computation to finish and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.value, f.err
}

// AwaitWithTimeout waits at most timeout for the computation to finish.
// Returns ErrTimeout if the future is still pending afterwards.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// AwaitContext waits until the future settles or ctx is done.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// IsComplete reports whether the future has settled without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the future settles.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// Async executes fn with param in a new goroutine.
// If ctx is already cancelled fn is not called and the future fails with ctx.Err().
// A panic inside fn settles the future with an error wrapping ErrPanic.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := newFuture[U]()

	go func() {
		var zero U

		select {
		case <-ctx.Done():
			f.settle(zero, ctx.Err())
			return
		default:
		}

		v, err := Call(ctx, func(ctx context.Context) (U, error) {
			return fn(ctx, param)
		})
		f.settle(v, err)
	}()

	return f
}

// Go is Async for functions without a parameter.
func Go[U any](ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	return Async(ctx, struct{}{}, func(ctx context.Context, _ struct{}) (U, error) {
		return fn(ctx)
	})
}

// Call runs fn synchronously, converting a panic into an error wrapping ErrPanic.
func Call[U any](ctx context.Context, fn func(context.Context) (U, error)) (v U, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero U
			v = zero
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx)
}

// Resolved returns a future already settled with value.
func Resolved[U any](value U) *Future[U] {
	f := newFuture[U]()
	f.settle(value, nil)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[U any](err error) *Future[U] {
	f := newFuture[U]()
	var zero U
	f.settle(zero, err)
	return f
}

// WaitAll waits for every future and returns their values in order.
// The first error encountered, in argument order, is returned.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	for i, f := range futures {
		v, err := f.Await()
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

// WaitAny returns the index and result of the first future to settle.
func WaitAny[U any](futures ...*Future[U]) (int, U, error) {
	var zero U
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	type result struct {
		index int
		value U
		err   error
	}

	// Buffered so losing goroutines do not block.
	done := make(chan result, len(futures))
	for i, f := range futures {
		go func(index int, f *Future[U]) {
			v, err := f.Await()
			done <- result{index, v, err}
		}(i, f)
	}

	res := <-done
	return res.index, res.value, res.err
}
