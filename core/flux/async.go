package flux

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/logger"
	"github.com/dmitrymomot/flux/pkg/async"
)

// AsyncFunc produces the deferred result of an async action.
type AsyncFunc func(ctx context.Context, args []any) (any, error)

// DispatchAsync runs an async action through its three phases.
//
// The begin payload, carrying args, is dispatched before DispatchAsync
// returns. fn then runs in its own goroutine; when it settles, the success
// payload (carrying the result) or the failure payload (carrying the error) is
// dispatched, waiting for any dispatch in progress to finish first. All three
// payloads share one dispatch id.
//
// The future resolves with fn's result. It rejects with fn's error after the
// failure payload has been dispatched, with the begin dispatch error (fn is
// then never called), or with an *AsyncLifecycleError if dispatching the
// outcome fails. Lifecycle errors are also emitted on OnError listeners.
func (f *Flux) DispatchAsync(ctx context.Context, ref action.Ref, args []any, fn AsyncFunc) *async.Future[any] {
	actionType := action.TypeOf(ref)
	if actionType == "" || fn == nil {
		return async.Rejected[any](fmt.Errorf("%w: async action needs a type and a function", ErrInvalidConfig))
	}

	dispatchID := action.NewDispatchID()

	begin := action.Payload{
		ActionType: actionType,
		Async:      action.PhaseBegin,
		ActionArgs: args,
		DispatchID: dispatchID,
	}
	if err := f.dispatcher.Dispatch(ctx, begin); err != nil {
		return async.Rejected[any](err)
	}

	// The outcome is dispatched even if ctx is cancelled meanwhile.
	settleCtx := context.WithoutCancel(ctx)

	return async.Go(settleCtx, func(settleCtx context.Context) (any, error) {
		started := time.Now()
		body, err := async.Call(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx, args)
		})
		f.logger.DebugContext(settleCtx, "async action settled",
			logger.ActionType(actionType),
			logger.DispatchID(dispatchID),
			logger.Duration(time.Since(started)),
			logger.Error(err))

		outcome := action.Payload{ActionType: actionType, DispatchID: dispatchID}
		if err != nil {
			outcome.Async = action.PhaseFailure
			outcome.Error = err
		} else {
			outcome.Async = action.PhaseSuccess
			outcome.Body = body
		}

		if derr := f.dispatcher.DispatchWait(settleCtx, outcome); derr != nil {
			lerr := &AsyncLifecycleError{
				ActionType: actionType,
				DispatchID: dispatchID,
				Phase:      outcome.Async,
				Err:        derr,
			}
			f.logger.ErrorContext(settleCtx, "async action outcome dispatch failed",
				logger.ActionType(actionType),
				logger.DispatchID(dispatchID),
				logger.Phase(string(outcome.Async)),
				logger.Error(derr))
			f.emitError(settleCtx, lerr)
			return nil, lerr
		}

		if err != nil {
			return nil, err
		}
		return body, nil
	})
}
