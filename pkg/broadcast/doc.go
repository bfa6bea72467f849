// Package broadcast provides a generic, synchronous listener set.
//
// Stores use an Emitter to publish change notifications and the flux
// container uses one for its error event. Delivery happens on the
// broadcasting goroutine, in subscription order, before Broadcast returns.
//
// # Usage
//
//	changes := broadcast.NewEmitter[State]()
//
//	id := changes.Subscribe(func(s State) {
//		view.Render(s)
//	})
//	defer changes.Unsubscribe(id)
//
//	changes.Broadcast(next)
//
// # Reentrancy
//
// Broadcast works on a copy of the subscriber list, so a listener may
// subscribe or unsubscribe (itself included) while being called. The change
// applies from the next Broadcast.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Listeners run outside the lock.
package broadcast
