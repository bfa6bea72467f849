package flux

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/flux/core/action"
)

var (
	// ErrNotFound is returned when removing a store, action set or instance that does not exist.
	ErrNotFound = errors.New("flux: not found")

	// ErrDuplicateStore is returned when a store name is already taken.
	ErrDuplicateStore = errors.New("flux: store already registered")

	// ErrDuplicateActions is returned when an action set name is already taken.
	ErrDuplicateActions = errors.New("flux: actions already registered")

	// ErrDuplicateInstance is returned when a registry already holds an instance with the same name.
	ErrDuplicateInstance = errors.New("flux: instance already registered")

	// ErrInvalidConfig is returned for an incomplete store or actions configuration.
	ErrInvalidConfig = errors.New("flux: invalid configuration")

	// ErrUnknownAction is returned when calling a method an action set does not define.
	ErrUnknownAction = errors.New("flux: unknown action")

	// ErrInvalidSnapshot is returned by Deserialize for malformed input.
	ErrInvalidSnapshot = errors.New("flux: invalid snapshot")

	// ErrAsyncLifecycle marks a failure while dispatching the outcome of an async action.
	ErrAsyncLifecycle = errors.New("flux: async action lifecycle failed")
)

// AsyncLifecycleError is raised when dispatching the success or failure payload
// of an async action fails. It is emitted on the error event and rejects the
// action's future.
type AsyncLifecycleError struct {
	ActionType string
	DispatchID string
	Phase      action.Phase
	Err        error
}

func (e *AsyncLifecycleError) Error() string {
	return fmt.Sprintf("%s: %s %q (dispatch %s): %v", ErrAsyncLifecycle, e.Phase, e.ActionType, e.DispatchID, e.Err)
}

// Unwrap returns the dispatch error.
func (e *AsyncLifecycleError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrAsyncLifecycle.
func (e *AsyncLifecycleError) Is(target error) bool {
	return target == ErrAsyncLifecycle
}
