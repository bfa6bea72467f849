package action

import (
	"strings"

	"github.com/google/uuid"
)

// Ref is anything that names an action: a raw Type or an action creator
// carrying its own identifier.
type Ref interface {
	ActionType() string
}

// Type is a raw action identifier.
type Type string

// ActionType implements Ref.
func (t Type) ActionType() string {
	return string(t)
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// New returns a unique action type derived from name.
// The suffix is taken from a random UUID, so repeated calls with the same name
// never return the same identifier.
func New(name string) Type {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if name == "" {
		return Type(suffix)
	}
	return Type(name + "#" + suffix)
}

// TypeOf extracts the identifier from ref.
// Returns an empty string for a nil ref.
func TypeOf(ref Ref) string {
	if ref == nil {
		return ""
	}
	return ref.ActionType()
}

// NewDispatchID returns a fresh correlation id for the phases of one
// asynchronous action.
func NewDispatchID() string {
	return uuid.NewString()
}
