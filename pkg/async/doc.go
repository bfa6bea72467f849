// Package async provides a generic Future for asynchronous results.
//
// The flux container uses it to represent the deferred result of an
// asynchronous action: the begin phase is dispatched synchronously, the
// action runs in a goroutine, and the Future settles after the success or
// failure phase has been dispatched.
//
// # Usage
//
//	future := async.Async(ctx, 123, fetchUser)
//
//	// Do other work...
//
//	user, err := future.Await()
//
// Using timeout:
//
//	user, err := future.AwaitWithTimeout(50 * time.Millisecond)
//	if errors.Is(err, async.ErrTimeout) {
//		log.Println("operation timed out")
//	}
//
// Functions without a parameter use Go:
//
//	future := async.Go(ctx, func(ctx context.Context) (string, error) {
//		return client.Fetch(ctx)
//	})
//
// # Coordination Utilities
//
//	users, err := async.WaitAll(futures...)
//	index, user, err := async.WaitAny(futures...)
//
// # Panics
//
// A panic inside an asynchronous function settles its Future with an error
// wrapping ErrPanic instead of crashing the process. Call applies the same
// conversion to a synchronous function.
//
// # Context Support
//
// If the context is cancelled before the function starts, the Future settles
// with the context's error and the function is never called.
package async
