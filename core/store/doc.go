// Package store implements stores: state owners that update in response to
// dispatched payloads.
//
// # Handlers
//
// A store routes each payload to the handlers registered for it:
//
//	s.Register(ref, h)                         // exact action type
//	s.RegisterAsync(ref, begin, success, fail) // phases of an async action
//	s.RegisterAll(h)                           // every sync/success payload
//	s.RegisterAllAsync(begin, success, fail)   // every async phase
//	s.RegisterMatch(pred, h)                   // every payload pred accepts
//
// Begin handlers receive the action arguments, failure handlers the error,
// and everything else the body. A success payload with no async success
// handler falls back to the synchronous handler for the same action type.
// Catch-alls run after the action's own handler, predicates last.
//
// Nil handlers are ignored rather than rejected.
//
// # Transactions
//
// While a store handles a payload, its updates are batched:
//
//	s.Register(rename, func(ctx context.Context, body any, _ action.Payload) error {
//	    s.SetState(map[string]any{"name": body})
//	    s.SetState(map[string]any{"updated": true})
//	    return nil // listeners are notified once, with both keys
//	})
//
// No update means no notification. ForceUpdate notifies without changing state.
//
// State returns the committed state, so a read-modify-write inside a handler
// goes through Update, which sees the pending state:
//
//	s.Update(func(prev map[string]any) map[string]any {
//	    next := maps.Clone(prev)
//	    next["count"] = next["count"].(int) + 1
//	    return next
//	})
//
// # Ordering
//
// A handler can require other stores to process the payload first:
//
//	if err := cart.WaitFor(ctx, prices); err != nil {
//	    return err
//	}
//	total := prices.State()["total"]
//
// # State Types
//
// State can be any type. The default ShallowMerge merges maps key by key and
// structs field by field: value fields are always copied, nil pointer, slice
// and map fields are left as they were. Other types are replaced.
// WithMerge installs a custom merge, for example Concat for string state.
package store
