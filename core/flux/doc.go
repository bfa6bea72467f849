// Package flux ties a dispatcher, stores and action sets into one container.
//
// # Setup
//
//	f := flux.New(flux.WithConfig(cfg))
//
//	todos := store.New(map[string]any{})
//	if err := f.AddStore("todos", todos); err != nil {
//	    return err
//	}
//
// AddStore registers the store's HandleDispatch with the dispatcher and binds
// the store so it can WaitFor other stores. Store returns an absent value for
// unknown names, while RemoveStore fails with ErrNotFound.
//
// # Actions
//
// An action set maps method names to action types and turns calls into payloads:
//
//	users, err := f.CreateActions(flux.ActionsConfig{
//	    Name: "users",
//	    Actions: []flux.ActionBinding{
//	        {Method: "rename", Run: rename},
//	    },
//	    ServiceActions: []flux.ServiceAction{
//	        {Method: "fetch", Run: fetchUser},
//	    },
//	})
//
//	err = users.Call(ctx, "rename", "id-1", "Ada")
//	user, err := users.CallAsync(ctx, "fetch", "id-1").Await()
//
// # Async Lifecycle
//
// DispatchAsync (and CallAsync) dispatch a begin payload right away, run the
// action in a goroutine and dispatch a success or failure payload when it
// settles. All three share a dispatch id. The dispatcher is free between
// begin and the outcome, so unrelated dispatches may happen in between.
//
// A store handler failing on the outcome cannot be returned to anyone, so it
// is emitted to OnError listeners as an *AsyncLifecycleError and also rejects
// the returned future.
//
// # Snapshots
//
// Serialize writes every store state into one JSON object keyed by store
// name; Deserialize restores it through each store's ReplaceState.
package flux
