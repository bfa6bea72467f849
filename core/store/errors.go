package store

import "errors"

var (
	// ErrNotBound is returned by WaitFor when the store is not registered with a dispatcher.
	ErrNotBound = errors.New("store: not bound to a dispatcher")

	// ErrUnexpectedValue is returned by Typed handlers when the payload value has another type.
	ErrUnexpectedValue = errors.New("store: unexpected handler value type")
)
