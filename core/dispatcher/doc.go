// Package dispatcher broadcasts payloads to a set of registered callbacks
// with declared ordering between them.
//
// # Registration
//
// Register returns a Token, unique for the life of the process. Tokens are
// the vocabulary of WaitFor and Unregister:
//
//	d := dispatcher.New()
//	prices := d.Register(pricesStore.HandleDispatch)
//	cart := d.Register(func(ctx context.Context, p action.Payload) error {
//	    if err := d.WaitFor(ctx, prices); err != nil {
//	        return err
//	    }
//	    return recalculate(p)
//	})
//
// # Dispatch Cycle
//
// Dispatch invokes callbacks in registration order. A callback that calls
// WaitFor runs the named callbacks first; those are then skipped by the main
// loop, so each callback runs exactly once per dispatch.
//
// Only one dispatch runs at a time. Calling Dispatch while one is in progress,
// from a callback or from another goroutine, returns ErrAlreadyDispatching.
// DispatchWait blocks instead and is what asynchronous result delivery uses.
//
// # Errors
//
//   - ErrUnknownToken: Unregister or WaitFor with a token that is not registered
//   - ErrAlreadyDispatching: nested or concurrent Dispatch
//   - ErrNotDispatching: WaitFor outside a dispatch
//   - ErrCircularDependency: WaitFor on a callback that is still running
//   - ErrHandler: a callback returned an error or panicked (*HandlerError)
//
// The dispatcher is always unlocked when Dispatch returns, whatever the callbacks did.
package dispatcher
