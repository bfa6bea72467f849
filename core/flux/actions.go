package flux

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/pkg/async"
)

// SyncFunc computes the body of a synchronous action from its arguments.
type SyncFunc func(ctx context.Context, args []any) (any, error)

// ActionBinding declares a synchronous action method.
// Type is generated from the set and method names when empty.
type ActionBinding struct {
	Method string
	Type   action.Type
	Run    SyncFunc
}

// ServiceAction declares an async action method.
// Type is generated from the set and method names when empty.
type ServiceAction struct {
	Method string
	Type   action.Type
	Run    AsyncFunc
}

// ActionsConfig declares a named set of actions.
type ActionsConfig struct {
	Name           string
	Actions        []ActionBinding
	ServiceActions []ServiceAction
}

// Actions turns method calls into dispatched payloads.
type Actions struct {
	name    string
	flux    *Flux
	sync    map[string]ActionBinding
	service map[string]ServiceAction
}

// CreateActions builds an action set from cfg and registers it under cfg.Name.
func (f *Flux) CreateActions(cfg ActionsConfig) (*Actions, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: actions need a name", ErrInvalidConfig)
	}

	a := &Actions{
		name:    cfg.Name,
		flux:    f,
		sync:    make(map[string]ActionBinding, len(cfg.Actions)),
		service: make(map[string]ServiceAction, len(cfg.ServiceActions)),
	}

	for _, b := range cfg.Actions {
		if err := a.checkMethod(b.Method, b.Run == nil); err != nil {
			return nil, err
		}
		if b.Type == "" {
			b.Type = action.New(cfg.Name + "." + b.Method)
		}
		a.sync[b.Method] = b
	}

	for _, s := range cfg.ServiceActions {
		if err := a.checkMethod(s.Method, s.Run == nil); err != nil {
			return nil, err
		}
		if s.Type == "" {
			s.Type = action.New(cfg.Name + "." + s.Method)
		}
		a.service[s.Method] = s
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.actions[cfg.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateActions, cfg.Name)
	}
	f.actions[cfg.Name] = a

	return a, nil
}

func (a *Actions) checkMethod(method string, noRun bool) error {
	if method == "" || noRun {
		return fmt.Errorf("%w: action %s.%q needs a method name and a function", ErrInvalidConfig, a.name, method)
	}
	_, inSync := a.sync[method]
	_, inService := a.service[method]
	if inSync || inService {
		return fmt.Errorf("%w: duplicate method %s.%s", ErrInvalidConfig, a.name, method)
	}
	return nil
}

// Actions returns the action set registered under name.
func (f *Flux) Actions(name string) (*Actions, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	a, ok := f.actions[name]
	return a, ok
}

// RemoveActions removes an action set.
// Returns ErrNotFound if no set is registered under name.
func (f *Flux) RemoveActions(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.actions[name]; !ok {
		return fmt.Errorf("%w: actions %s", ErrNotFound, name)
	}
	delete(f.actions, name)
	return nil
}

// Name returns the set's name.
func (a *Actions) Name() string {
	return a.name
}

// Ref returns the action type of method, for store registration.
// Unknown methods yield nil, which stores ignore.
func (a *Actions) Ref(method string) action.Ref {
	if b, ok := a.sync[method]; ok {
		return b.Type
	}
	if s, ok := a.service[method]; ok {
		return s.Type
	}
	return nil
}

// Call runs a synchronous action and dispatches its result as the payload
// body, with args as ActionArgs.
// Nothing is dispatched when the run function fails or returns a nil body.
func (a *Actions) Call(ctx context.Context, method string, args ...any) error {
	b, ok := a.sync[method]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownAction, a.name, method)
	}

	body, err := b.Run(ctx, args)
	if err != nil {
		return err
	}
	if body == nil {
		return nil
	}

	return a.flux.Dispatch(ctx, action.Payload{
		ActionType: b.Type.ActionType(),
		Body:       body,
		ActionArgs: args,
	})
}

// CallAsync runs a service action through DispatchAsync.
func (a *Actions) CallAsync(ctx context.Context, method string, args ...any) *async.Future[any] {
	s, ok := a.service[method]
	if !ok {
		return async.Rejected[any](fmt.Errorf("%w: %s.%s", ErrUnknownAction, a.name, method))
	}
	return a.flux.DispatchAsync(ctx, s.Type, args, s.Run)
}
