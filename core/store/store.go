package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/dispatcher"
	"github.com/dmitrymomot/flux/core/logger"
	"github.com/dmitrymomot/flux/pkg/broadcast"
)

// Waiter is the part of the dispatcher a store needs to order itself after other stores.
type Waiter interface {
	WaitFor(ctx context.Context, tokens ...dispatcher.Token) error
}

// Waitable is anything registered with a dispatcher, usually another store.
type Waitable interface {
	Token() dispatcher.Token
}

// Store owns a state value of type S and updates it in response to dispatched payloads.
//
// While a payload is being handled, SetState, ReplaceState and ForceUpdate
// accumulate into a pending snapshot. When the handlers return, the snapshot
// becomes the state and listeners are notified once. Outside a dispatch the
// same calls apply and notify immediately.
//
// Example:
//
//	todos := store.New(map[string]any{"items": []string{}})
//	todos.Register(addTodo, func(ctx context.Context, body any, _ action.Payload) error {
//	    items := todos.State()["items"].([]string)
//	    todos.SetState(map[string]any{"items": append(items, body.(string))})
//	    return nil
//	})
type Store[S any] struct {
	HandlerMap

	mu         sync.Mutex
	state      S
	pending    S
	handling   bool
	shouldEmit bool

	merge     MergeFunc[S]
	marshal   func(S) ([]byte, error)
	unmarshal func([]byte) (S, error)
	changes   broadcast.Emitter[S]
	logger    *slog.Logger

	name   string
	token  dispatcher.Token
	waiter Waiter
}

// New creates a store holding initial.
func New[S any](initial S, opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		state:  initial,
		merge:  ShallowMerge[S],
		logger: logger.Discard(),
		marshal: func(v S) ([]byte, error) {
			return json.Marshal(v)
		},
		unmarshal: func(data []byte) (S, error) {
			var v S
			err := json.Unmarshal(data, &v)
			return v, err
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the committed state.
// Mid-dispatch updates are not visible until the store's handlers return;
// use Update to build on them.
// Treat the result as read-only when S is a map or contains pointers.
func (s *Store[S]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState merges partial into the state using the store's MergeFunc.
func (s *Store[S]) SetState(partial S) {
	s.update(func(prev S) S {
		return s.merge(prev, partial)
	})
}

// Update replaces the state with fn(prev). During a dispatch prev is the
// pending state, so several handlers of one payload see each other's updates.
// fn runs under the store lock and must not call back into the store.
//
// Example:
//
//	s.Update(func(prev State) State {
//	    prev.Todos = append(slices.Clone(prev.Todos), todo)
//	    return prev
//	})
func (s *Store[S]) Update(fn func(prev S) S) {
	if fn == nil {
		return
	}
	s.update(fn)
}

// ReplaceState replaces the state with next.
func (s *Store[S]) ReplaceState(next S) {
	s.update(func(S) S {
		return next
	})
}

// ForceUpdate notifies listeners without changing the state.
// During a dispatch the notification is deferred to the end of the transaction.
func (s *Store[S]) ForceUpdate() {
	s.mu.Lock()
	if s.handling {
		s.shouldEmit = true
		s.mu.Unlock()
		return
	}
	current := s.state
	s.mu.Unlock()

	s.emit(current)
}

func (s *Store[S]) update(fn func(S) S) {
	s.mu.Lock()
	if s.handling {
		s.pending = fn(s.pending)
		s.shouldEmit = true
		s.mu.Unlock()
		return
	}
	s.state = fn(s.state)
	next, name := s.state, s.name
	s.mu.Unlock()

	s.logger.Debug("state updated outside a dispatch", logger.Store(name))
	s.emit(next)
}

// HandleDispatch routes p to the matching handlers inside a transaction.
// It is the callback registered with the dispatcher.
//
// The transaction always closes, even when a handler fails or panics:
// accumulated updates are committed, listeners notified at most once, and
// the handler error returned.
func (s *Store[S]) HandleDispatch(ctx context.Context, p action.Payload) error {
	handlers := s.Handlers(p)
	if len(handlers) == 0 {
		return nil
	}

	s.begin()
	defer s.commit(ctx, p)

	value := p.Value()
	for _, h := range handlers {
		if err := h(ctx, value, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[S]) begin() {
	s.mu.Lock()
	s.handling = true
	s.pending = cloneState(s.state)
	s.shouldEmit = false
	s.mu.Unlock()
}

func (s *Store[S]) commit(ctx context.Context, p action.Payload) {
	var zero S

	s.mu.Lock()
	emit := s.shouldEmit
	if emit {
		s.state = s.pending
	}
	next, name := s.state, s.name
	s.handling = false
	s.pending = zero
	s.shouldEmit = false
	s.mu.Unlock()

	if !emit {
		return
	}

	s.logger.DebugContext(ctx, "store changed",
		logger.Store(name),
		logger.ActionType(p.ActionType),
		logger.Phase(string(p.Async)))
	s.emit(next)
}

func (s *Store[S]) emit(state S) {
	s.changes.Broadcast(state)
}

// AddListener subscribes fn to change notifications.
func (s *Store[S]) AddListener(fn func(S)) broadcast.ID {
	return s.changes.Subscribe(fn)
}

// RemoveListener unsubscribes a change listener.
func (s *Store[S]) RemoveListener(id broadcast.ID) bool {
	return s.changes.Unsubscribe(id)
}

// ListenerCount returns the number of change listeners.
func (s *Store[S]) ListenerCount() int {
	return s.changes.Len()
}

// Bind records the store's dispatcher registration.
// The flux container calls it when the store is added.
func (s *Store[S]) Bind(name string, token dispatcher.Token, w Waiter) {
	s.mu.Lock()
	s.name = name
	s.token = token
	s.waiter = w
	s.mu.Unlock()
}

// Unbind clears the dispatcher registration.
func (s *Store[S]) Unbind() {
	s.mu.Lock()
	s.token = ""
	s.waiter = nil
	s.mu.Unlock()
}

// Name returns the name the store was bound under.
func (s *Store[S]) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Token returns the store's dispatcher token, empty when unbound.
func (s *Store[S]) Token() dispatcher.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// WaitFor makes the other stores handle the current payload first.
// Must be called from one of this store's handlers.
func (s *Store[S]) WaitFor(ctx context.Context, others ...Waitable) error {
	s.mu.Lock()
	w := s.waiter
	s.mu.Unlock()

	if w == nil {
		return ErrNotBound
	}

	tokens := make([]dispatcher.Token, 0, len(others))
	for _, o := range others {
		tokens = append(tokens, o.Token())
	}
	return w.WaitFor(ctx, tokens...)
}

// MarshalState encodes the committed state, with encoding/json unless
// WithSerializer was given.
func (s *Store[S]) MarshalState() ([]byte, error) {
	return s.marshal(s.State())
}

// UnmarshalState decodes data and installs it with ReplaceState.
func (s *Store[S]) UnmarshalState(data []byte) error {
	v, err := s.unmarshal(data)
	if err != nil {
		return err
	}
	s.ReplaceState(v)
	return nil
}
