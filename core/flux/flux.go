package flux

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/dispatcher"
	"github.com/dmitrymomot/flux/core/logger"
	"github.com/dmitrymomot/flux/core/store"
	"github.com/dmitrymomot/flux/pkg/broadcast"
)

// Registrant is what a store must provide to be added to a Flux instance.
// *store.Store[S] implements it for every S.
type Registrant interface {
	HandleDispatch(ctx context.Context, p action.Payload) error
	Bind(name string, token dispatcher.Token, w store.Waiter)
	Unbind()
}

// Serializable stores take part in Serialize and Deserialize.
type Serializable interface {
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

type storeEntry struct {
	store Registrant
	token dispatcher.Token
}

// Flux owns a dispatcher together with the stores and action sets bound to it.
//
// Example:
//
//	f := flux.New(flux.WithLogger(log))
//
//	todos := store.New(map[string]any{"items": []string{}})
//	if err := f.AddStore("todos", todos); err != nil {
//	    return err
//	}
//
//	actions, err := f.CreateActions(flux.ActionsConfig{
//	    Name: "todos",
//	    Actions: []flux.ActionBinding{
//	        {Method: "add", Run: func(_ context.Context, args []any) (any, error) { return args[0], nil }},
//	    },
//	})
//	todos.Register(actions.Ref("add"), addTodo)
//
//	err = actions.Call(ctx, "add", "write docs")
type Flux struct {
	name           string
	logger         *slog.Logger
	recoverPanics  bool
	logCallbacks   bool
	tracerProvider trace.TracerProvider
	dispatcherOpts []dispatcher.Option
	dispatcher     *dispatcher.Dispatcher

	mu         sync.RWMutex
	stores     map[string]storeEntry
	storeOrder []string
	actions    map[string]*Actions

	errors broadcast.Emitter[error]
}

// New creates a Flux instance with its own dispatcher.
func New(opts ...Option) *Flux {
	f := &Flux{
		name:          "default",
		logger:        logger.Discard(),
		recoverPanics: true,
		stores:        make(map[string]storeEntry),
		actions:       make(map[string]*Actions),
	}

	for _, opt := range opts {
		opt(f)
	}

	dopts := []dispatcher.Option{
		dispatcher.WithLogger(f.logger),
		dispatcher.WithPanicRecovery(f.recoverPanics),
	}
	if f.logCallbacks {
		dopts = append(dopts, dispatcher.WithMiddleware(dispatcher.LoggingMiddleware(f.logger)))
	}
	if f.tracerProvider != nil {
		dopts = append(dopts, dispatcher.WithMiddleware(dispatcher.TracingMiddleware(f.tracerProvider)))
	}
	f.dispatcher = dispatcher.New(append(dopts, f.dispatcherOpts...)...)

	return f
}

// Name returns the instance name.
func (f *Flux) Name() string {
	return f.name
}

// Dispatcher returns the underlying dispatcher.
func (f *Flux) Dispatcher() *dispatcher.Dispatcher {
	return f.dispatcher
}

// Dispatch broadcasts p to every store.
func (f *Flux) Dispatch(ctx context.Context, p action.Payload) error {
	return f.dispatcher.Dispatch(ctx, p)
}

// AddStore registers s with the dispatcher under name.
func (f *Flux) AddStore(name string, s Registrant) error {
	if name == "" || s == nil {
		return fmt.Errorf("%w: store needs a name and a value", ErrInvalidConfig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.stores[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStore, name)
	}

	token := f.dispatcher.Register(s.HandleDispatch)
	s.Bind(name, token, f.dispatcher)

	f.stores[name] = storeEntry{store: s, token: token}
	f.storeOrder = append(f.storeOrder, name)

	f.logger.Debug("store added", logger.Store(name), logger.Token(token.String()))
	return nil
}

// Store returns the store registered under name.
func (f *Flux) Store(name string) (Registrant, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	e, ok := f.stores[name]
	if !ok {
		return nil, false
	}
	return e.store, true
}

// GetStore returns the store registered under name with its concrete state type.
// Reports false when the name is unknown or the store holds another state type.
func GetStore[S any](f *Flux, name string) (*store.Store[S], bool) {
	r, ok := f.Store(name)
	if !ok {
		return nil, false
	}
	s, ok := r.(*store.Store[S])
	return s, ok
}

// RemoveStore unregisters the store from the dispatcher.
// Returns ErrNotFound if no store is registered under name.
func (f *Flux) RemoveStore(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.stores[name]
	if !ok {
		return fmt.Errorf("%w: store %s", ErrNotFound, name)
	}

	if err := f.dispatcher.Unregister(e.token); err != nil {
		return err
	}
	e.store.Unbind()

	delete(f.stores, name)
	f.storeOrder = slices.DeleteFunc(f.storeOrder, func(n string) bool { return n == name })

	f.logger.Debug("store removed", logger.Store(name))
	return nil
}

// Stores returns store names in registration order.
func (f *Flux) Stores() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.storeOrder)
}

// OnError subscribes fn to errors raised outside any caller's reach, such as
// a failing success handler of an async action.
func (f *Flux) OnError(fn func(error)) broadcast.ID {
	return f.errors.Subscribe(fn)
}

// OffError removes an error listener.
func (f *Flux) OffError(id broadcast.ID) bool {
	return f.errors.Unsubscribe(id)
}

func (f *Flux) emitError(ctx context.Context, err error) {
	if f.errors.Broadcast(err) == 0 {
		f.logger.ErrorContext(ctx, "unhandled flux error", logger.Error(err))
	}
}
