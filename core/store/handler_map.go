package store

import (
	"sync"

	"github.com/dmitrymomot/flux/core/action"
)

type asyncHandlers struct {
	begin   Handler
	success Handler
	failure Handler
}

func (a asyncHandlers) phase(p action.Phase) Handler {
	switch p {
	case action.PhaseBegin:
		return a.begin
	case action.PhaseSuccess:
		return a.success
	case action.PhaseFailure:
		return a.failure
	default:
		return nil
	}
}

func (a asyncHandlers) empty() bool {
	return a.begin == nil && a.success == nil && a.failure == nil
}

type matchHandler struct {
	pred    Predicate
	handler Handler
}

// HandlerMap maps action types, catch-alls and predicates to handlers.
// Nil handlers, predicates and refs are ignored by every Register method.
//
// The zero value is ready to use.
type HandlerMap struct {
	mu       sync.RWMutex
	exact    map[string]Handler
	async    map[string]asyncHandlers
	all      []Handler
	allAsync []asyncHandlers
	match    []matchHandler
}

// Register sets the handler for an action type, replacing any previous one.
func (m *HandlerMap) Register(ref action.Ref, h Handler) {
	id := action.TypeOf(ref)
	if id == "" || h == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.exact == nil {
		m.exact = make(map[string]Handler)
	}
	m.exact[id] = h
}

// RegisterAsync sets the begin, success and failure handlers for an action type.
// Any of them may be nil.
func (m *HandlerMap) RegisterAsync(ref action.Ref, begin, success, failure Handler) {
	id := action.TypeOf(ref)
	if id == "" {
		return
	}
	h := asyncHandlers{begin: begin, success: success, failure: failure}
	if h.empty() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.async == nil {
		m.async = make(map[string]asyncHandlers)
	}
	m.async[id] = h
}

// RegisterAll adds a handler called for every synchronous or success payload.
func (m *HandlerMap) RegisterAll(h Handler) {
	if h == nil {
		return
	}

	m.mu.Lock()
	m.all = append(m.all, h)
	m.mu.Unlock()
}

// RegisterAllAsync adds catch-all handlers for the phases of every async action.
func (m *HandlerMap) RegisterAllAsync(begin, success, failure Handler) {
	h := asyncHandlers{begin: begin, success: success, failure: failure}
	if h.empty() {
		return
	}

	m.mu.Lock()
	m.allAsync = append(m.allAsync, h)
	m.mu.Unlock()
}

// RegisterMatch adds a handler called for every payload pred accepts.
func (m *HandlerMap) RegisterMatch(pred Predicate, h Handler) {
	if pred == nil || h == nil {
		return
	}

	m.mu.Lock()
	m.match = append(m.match, matchHandler{pred: pred, handler: h})
	m.mu.Unlock()
}

// RegisterBindings registers every binding.
func (m *HandlerMap) RegisterBindings(bindings ...Binding) {
	for _, b := range bindings {
		if b.Begin != nil || b.Failure != nil {
			m.RegisterAsync(b.Action, b.Begin, b.Handler, b.Failure)
			continue
		}
		m.Register(b.Action, b.Handler)
	}
}

// Handlers returns the handlers p routes to, in call order: the handler for
// the action type first, then catch-alls, then matching predicates.
//
// Begin and failure payloads only reach async handlers. A success payload
// reaches the async success handler or, if there is none, the synchronous
// handler for the same action type.
func (m *HandlerMap) Handlers(p action.Payload) []Handler {
	m.mu.RLock()
	var out []Handler

	switch p.Async {
	case action.PhaseBegin, action.PhaseFailure:
		if h := m.async[p.ActionType].phase(p.Async); h != nil {
			out = append(out, h)
		}
	case action.PhaseSuccess:
		if h := m.async[p.ActionType].success; h != nil {
			out = append(out, h)
		} else if h := m.exact[p.ActionType]; h != nil {
			out = append(out, h)
		}
	default:
		if h := m.exact[p.ActionType]; h != nil {
			out = append(out, h)
		}
	}

	if p.Async == action.PhaseNone || p.Async == action.PhaseSuccess {
		out = append(out, m.all...)
	}
	if p.IsAsync() {
		for _, a := range m.allAsync {
			if h := a.phase(p.Async); h != nil {
				out = append(out, h)
			}
		}
	}

	match := make([]matchHandler, len(m.match))
	copy(match, m.match)
	m.mu.RUnlock()

	// Predicates are user code; evaluate them outside the lock.
	for _, mh := range match {
		if mh.pred(p) {
			out = append(out, mh.handler)
		}
	}

	return out
}
