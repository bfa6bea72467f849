package action

// Phase tags a payload produced by an asynchronous action.
type Phase string

const (
	// PhaseNone marks a synchronous payload.
	PhaseNone Phase = ""
	// PhaseBegin is broadcast before the action's deferred result settles.
	PhaseBegin Phase = "begin"
	// PhaseSuccess is broadcast when the deferred result resolves.
	PhaseSuccess Phase = "success"
	// PhaseFailure is broadcast when the deferred result fails.
	PhaseFailure Phase = "failure"
)

// Payload is the record broadcast to every registered callback.
// Payloads are passed by value; callbacks must not mutate Meta or ActionArgs.
type Payload struct {
	ActionType string         `json:"action_type"`
	Body       any            `json:"body,omitempty"`
	Error      error          `json:"-"`
	Async      Phase          `json:"async,omitempty"`
	ActionArgs []any          `json:"action_args,omitempty"`
	DispatchID string         `json:"dispatch_id,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// IsAsync reports whether the payload belongs to an asynchronous action.
func (p Payload) IsAsync() bool {
	return p.Async != PhaseNone
}

// Value returns the argument handlers receive for this payload:
// ActionArgs for begin, Error for failure and Body otherwise.
func (p Payload) Value() any {
	switch p.Async {
	case PhaseBegin:
		return p.ActionArgs
	case PhaseFailure:
		return p.Error
	default:
		return p.Body
	}
}

// Get returns a value from Meta.
func (p Payload) Get(key string) (any, bool) {
	if p.Meta == nil {
		return nil, false
	}
	v, ok := p.Meta[key]
	return v, ok
}
