package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/logger"
)

// Dispatcher broadcasts payloads to registered callbacks.
//
// Only one dispatch runs at a time. Inside a dispatch, a callback may call
// WaitFor to have other callbacks run first; every callback still runs
// exactly once per dispatch.
//
// Example:
//
//	d := dispatcher.New(dispatcher.WithLogger(logger))
//	usersToken := d.Register(usersStore.HandleDispatch)
//	d.Register(func(ctx context.Context, p action.Payload) error {
//	    if err := d.WaitFor(ctx, usersToken); err != nil {
//	        return err
//	    }
//	    return nil
//	})
//	err := d.Dispatch(ctx, action.Payload{ActionType: "user.created", Body: user})
type Dispatcher struct {
	callbacks     *registry
	middleware    []Middleware
	logger        *slog.Logger
	recoverPanics bool

	// cycle is held for the whole dispatch.
	cycle       sync.Mutex
	dispatching atomic.Bool
	cycleSeq    atomic.Uint64
	activeCycle atomic.Uint64

	// Per-dispatch bookkeeping, owned by the goroutine holding cycle.
	payload  action.Payload
	pending  map[Token]bool
	handled  map[Token]bool
	cycleErr error

	dispatched     atomic.Int64
	failed         atomic.Int64
	lastDispatchAt atomic.Int64
}

// Stats reports dispatcher activity.
type Stats struct {
	Callbacks      int
	Dispatched     int64
	Failed         int64
	IsDispatching  bool
	LastDispatchAt time.Time
}

// New creates a dispatcher with the given options.
//
// Example:
//
//	d := dispatcher.New(
//	    dispatcher.WithLogger(logger),
//	    dispatcher.WithMiddleware(dispatcher.LoggingMiddleware(logger)),
//	)
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		callbacks:     newRegistry(),
		logger:        logger.Discard(),
		recoverPanics: true,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register adds cb and returns its token.
// The same callback may be registered several times; each registration gets its own token.
func (d *Dispatcher) Register(cb Callback) Token {
	if cb != nil && len(d.middleware) > 0 {
		cb = chainMiddleware(cb, d.middleware)
	}
	token := d.callbacks.add(cb)

	d.logger.Debug("callback registered", logger.Token(token.String()))
	return token
}

// Unregister removes the callback registered under token.
// Returns ErrUnknownToken if there is none.
func (d *Dispatcher) Unregister(token Token) error {
	if !d.callbacks.remove(token) {
		return fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}

	d.logger.Debug("callback unregistered", logger.Token(token.String()))
	return nil
}

// Dispatch broadcasts p to every registered callback in registration order.
// Returns ErrAlreadyDispatching if a dispatch is in progress, including when
// called from inside a callback.
//
// The first callback error stops the broadcast and is returned as a
// *HandlerError. A circular WaitFor is reported even if the callback that
// observed it did not return the error.
func (d *Dispatcher) Dispatch(ctx context.Context, p action.Payload) error {
	if !d.cycle.TryLock() {
		d.logger.WarnContext(ctx, "dispatch rejected: another dispatch in progress",
			logger.ActionType(p.ActionType))
		return fmt.Errorf("%w: %q", ErrAlreadyDispatching, p.ActionType)
	}
	defer d.cycle.Unlock()

	return d.run(ctx, p)
}

// DispatchWait is Dispatch that waits for the in-progress dispatch to finish
// instead of failing. It is meant for goroutines delivering asynchronous
// results and must not be called from a callback: that would deadlock.
func (d *Dispatcher) DispatchWait(ctx context.Context, p action.Payload) error {
	d.cycle.Lock()
	defer d.cycle.Unlock()

	return d.run(ctx, p)
}

// WaitFor invokes the callbacks registered under tokens before returning.
// Callbacks already handled in this dispatch are skipped.
//
// Must be called from a callback with the context it received (or one derived
// from it). Any other caller, including another goroutine while a dispatch is
// running, gets ErrNotDispatching.
// Returns a *CircularDependencyError if a token is still running further up the stack.
func (d *Dispatcher) WaitFor(ctx context.Context, tokens ...Token) error {
	if !d.inCycle(ctx) {
		return ErrNotDispatching
	}

	for _, token := range tokens {
		if d.pending[token] {
			if d.handled[token] {
				continue
			}

			err := &CircularDependencyError{Token: token}
			if d.cycleErr == nil {
				d.cycleErr = err
			}
			d.logger.ErrorContext(ctx, "circular wait detected",
				logger.Token(token.String()),
				logger.ActionType(d.payload.ActionType))
			return err
		}

		if _, ok := d.callbacks.get(token); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownToken, token)
		}

		if err := d.invoke(ctx, token); err != nil {
			return err
		}
	}

	return nil
}

// IsDispatching reports whether a dispatch is in progress.
func (d *Dispatcher) IsDispatching() bool {
	return d.dispatching.Load()
}

// Len returns the number of registered callbacks.
func (d *Dispatcher) Len() int {
	return d.callbacks.len()
}

// Stats returns a snapshot of dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Callbacks:     d.callbacks.len(),
		Dispatched:    d.dispatched.Load(),
		Failed:        d.failed.Load(),
		IsDispatching: d.dispatching.Load(),
	}
	if ts := d.lastDispatchAt.Load(); ts > 0 {
		s.LastDispatchAt = time.Unix(0, ts)
	}
	return s
}

func (d *Dispatcher) run(ctx context.Context, p action.Payload) (err error) {
	start := time.Now()
	d.dispatched.Add(1)
	d.lastDispatchAt.Store(start.UnixNano())

	ctx = d.startDispatching(ctx, p)
	defer d.stopDispatching()

	for _, token := range d.callbacks.tokens() {
		if d.pending[token] {
			continue
		}
		if err = d.invoke(ctx, token); err != nil {
			break
		}
	}

	if err == nil && d.cycleErr != nil {
		err = d.cycleErr
	}

	if err != nil {
		d.failed.Add(1)
		d.logger.ErrorContext(ctx, "dispatch failed",
			logger.ActionType(p.ActionType),
			logger.Phase(string(p.Async)),
			logger.DispatchID(p.DispatchID),
			logger.Error(err))
		return err
	}

	d.logger.DebugContext(ctx, "dispatch completed",
		logger.ActionType(p.ActionType),
		logger.Phase(string(p.Async)),
		logger.DispatchID(p.DispatchID),
		logger.Count("callbacks", len(d.handled)),
		logger.Elapsed(start))
	return nil
}

// invoke runs one callback, marking it pending before and handled after.
func (d *Dispatcher) invoke(ctx context.Context, token Token) error {
	d.pending[token] = true

	cb, ok := d.callbacks.get(token)
	if !ok || cb == nil {
		// Unregistered during this dispatch.
		d.handled[token] = true
		return nil
	}

	err := d.call(ctx, token, cb)
	d.handled[token] = true

	if err != nil && !isProtocolError(err) {
		err = &HandlerError{Token: token, ActionType: d.payload.ActionType, Err: err}
	}
	return err
}

func (d *Dispatcher) call(ctx context.Context, token Token, cb Callback) (err error) {
	if d.recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				d.logger.ErrorContext(ctx, "callback panicked",
					logger.Token(token.String()),
					logger.ActionType(d.payload.ActionType),
					logger.Panic(r),
					logger.Stack())
				err = fmt.Errorf("panic: %v", r)
			}
		}()
	}

	return cb(withToken(ctx, token), d.payload)
}

func (d *Dispatcher) startDispatching(ctx context.Context, p action.Payload) context.Context {
	id := d.cycleSeq.Add(1)
	n := d.callbacks.len()
	d.pending = make(map[Token]bool, n)
	d.handled = make(map[Token]bool, n)
	d.cycleErr = nil
	d.payload = p
	d.activeCycle.Store(id)
	d.dispatching.Store(true)
	return context.WithValue(ctx, cycleKey{d: d}, id)
}

type cycleKey struct{ d *Dispatcher }

// inCycle reports whether ctx was handed to a callback by the running dispatch.
func (d *Dispatcher) inCycle(ctx context.Context) bool {
	id, ok := ctx.Value(cycleKey{d: d}).(uint64)
	return ok && d.dispatching.Load() && id == d.activeCycle.Load()
}

func (d *Dispatcher) stopDispatching() {
	d.dispatching.Store(false)
	d.activeCycle.Store(0)
	d.payload = action.Payload{}
	d.pending = nil
	d.handled = nil
	d.cycleErr = nil
}
