// Package action defines the payload broadcast by the dispatcher and the
// identifiers stores use to pick handlers for it.
//
// A payload always carries an action type. Asynchronous actions are broadcast
// three times at most (begin, then success or failure), each copy sharing one
// dispatch id:
//
//	p := action.Payload{ActionType: "todo.add", Body: todo}
//
//	begin := action.Payload{
//	    ActionType: "todo.save",
//	    Async:      action.PhaseBegin,
//	    ActionArgs: []any{todo},
//	    DispatchID: id,
//	}
//
// Action types are plain strings. New generates a unique one from a readable
// name so two action sets can use the same method names without colliding:
//
//	save := action.New("todo.save") // "todo.save#3f1c2a9e"
package action
