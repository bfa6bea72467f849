package flux_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/dispatcher"
	"github.com/dmitrymomot/flux/core/flux"
	"github.com/dmitrymomot/flux/core/store"
)

// recorder collects the payloads a store saw, safe for the settle goroutine.
type recorder struct {
	mu       sync.Mutex
	payloads []action.Payload
}

func (r *recorder) handler(tag string) store.Handler {
	return func(_ context.Context, _ any, p action.Payload) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if p.Meta == nil {
			p.Meta = map[string]any{}
		}
		p.Meta["handler"] = tag
		r.payloads = append(r.payloads, p)
		return nil
	}
}

func (r *recorder) all() []action.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]action.Payload(nil), r.payloads...)
}

func TestDispatchAsync(t *testing.T) {
	t.Parallel()

	t.Run("begin then success with a shared dispatch id", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		rec := &recorder{}
		s.RegisterAsync(ref, rec.handler("begin"), rec.handler("success"), rec.handler("failure"))
		require.NoError(t, f.AddStore("s", s))

		release := make(chan struct{})
		fut := f.DispatchAsync(context.Background(), ref, []any{"id-1"}, func(_ context.Context, args []any) (any, error) {
			<-release
			return "user:" + args[0].(string), nil
		})

		// Begin has been dispatched synchronously.
		got := rec.all()
		require.Len(t, got, 1)
		assert.Equal(t, action.PhaseBegin, got[0].Async)
		assert.Equal(t, []any{"id-1"}, got[0].ActionArgs)
		assert.False(t, fut.IsComplete())

		close(release)
		v, err := fut.Await()
		require.NoError(t, err)
		assert.Equal(t, "user:id-1", v)

		got = rec.all()
		require.Len(t, got, 2)
		assert.Equal(t, action.PhaseSuccess, got[1].Async)
		assert.Equal(t, "user:id-1", got[1].Body)
		assert.Nil(t, got[1].ActionArgs)
		assert.NotEmpty(t, got[0].DispatchID)
		assert.Equal(t, got[0].DispatchID, got[1].DispatchID)
		assert.Equal(t, ref.ActionType(), got[1].ActionType)
	})

	t.Run("failure reaches only the failure handler", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		rec := &recorder{}
		s.RegisterAsync(ref, nil, rec.handler("success"), rec.handler("failure"))
		require.NoError(t, f.AddStore("s", s))

		errFetch := errors.New("fetch failed")
		_, err := f.DispatchAsync(context.Background(), ref, nil, func(context.Context, []any) (any, error) {
			return nil, errFetch
		}).Await()
		assert.ErrorIs(t, err, errFetch)

		got := rec.all()
		require.Len(t, got, 1)
		assert.Equal(t, "failure", got[0].Meta["handler"])
		assert.Equal(t, action.PhaseFailure, got[0].Async)
		assert.ErrorIs(t, got[0].Error, errFetch)
	})

	t.Run("failure handler receives the error as value", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		s.RegisterAsync(ref, nil, nil, func(_ context.Context, value any, _ action.Payload) error {
			s.SetState(state{"error": value.(error).Error()})
			return nil
		})
		require.NoError(t, f.AddStore("s", s))

		_, err := f.DispatchAsync(context.Background(), ref, nil, func(context.Context, []any) (any, error) {
			return nil, errors.New("offline")
		}).Await()
		require.Error(t, err)
		assert.Equal(t, "offline", s.State()["error"])
	})

	t.Run("success handler error becomes a lifecycle error", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		var emitted []error
		var mu sync.Mutex
		f.OnError(func(err error) {
			mu.Lock()
			emitted = append(emitted, err)
			mu.Unlock()
		})

		s := store.New(state{})
		ref := action.New("fetch")
		errStore := errors.New("store rejected result")
		s.RegisterAsync(ref, nil, func(context.Context, any, action.Payload) error {
			return errStore
		}, nil)
		require.NoError(t, f.AddStore("s", s))

		_, err := f.DispatchAsync(context.Background(), ref, nil, func(context.Context, []any) (any, error) {
			return 1, nil
		}).Await()

		var lerr *flux.AsyncLifecycleError
		require.ErrorAs(t, err, &lerr)
		assert.Equal(t, action.PhaseSuccess, lerr.Phase)
		assert.Equal(t, ref.ActionType(), lerr.ActionType)
		assert.ErrorIs(t, err, errStore)
		assert.ErrorIs(t, err, dispatcher.ErrHandler)

		mu.Lock()
		require.Len(t, emitted, 1)
		assert.Same(t, lerr, emitted[0])
		mu.Unlock()

		// The dispatcher is usable afterwards.
		assert.False(t, f.Dispatcher().IsDispatching())
		require.NoError(t, f.Dispatch(context.Background(), action.Payload{ActionType: "other"}))
	})

	t.Run("begin dispatch error rejects without running the action", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		errBegin := errors.New("not now")
		s.RegisterAsync(ref, func(context.Context, any, action.Payload) error {
			return errBegin
		}, nil, nil)
		require.NoError(t, f.AddStore("s", s))

		ran := false
		fut := f.DispatchAsync(context.Background(), ref, nil, func(context.Context, []any) (any, error) {
			ran = true
			return nil, nil
		})
		require.True(t, fut.IsComplete())

		_, err := fut.Await()
		assert.ErrorIs(t, err, errBegin)
		assert.False(t, ran)
	})

	t.Run("sync subscriber sees only the result", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		rec := &recorder{}
		s.Register(ref, rec.handler("sync"))
		require.NoError(t, f.AddStore("s", s))

		v, err := f.DispatchAsync(context.Background(), ref, []any{"secret-arg"}, func(context.Context, []any) (any, error) {
			return "result", nil
		}).Await()
		require.NoError(t, err)
		assert.Equal(t, "result", v)

		got := rec.all()
		require.Len(t, got, 1)
		assert.Equal(t, action.PhaseSuccess, got[0].Async)
		assert.Equal(t, "result", got[0].Body)
		assert.Empty(t, got[0].ActionArgs)
	})

	t.Run("other dispatches may run between begin and outcome", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		other := action.New("other")
		rec := &recorder{}
		s.RegisterAsync(ref, rec.handler("begin"), rec.handler("success"), nil)
		s.Register(other, rec.handler("other"))
		require.NoError(t, f.AddStore("s", s))

		release := make(chan struct{})
		fut := f.DispatchAsync(context.Background(), ref, nil, func(context.Context, []any) (any, error) {
			<-release
			return nil, nil
		})

		require.NoError(t, f.Dispatch(context.Background(), action.Payload{ActionType: other.ActionType()}))
		close(release)
		_, err := fut.Await()
		require.NoError(t, err)

		got := rec.all()
		require.Len(t, got, 3)
		assert.Equal(t, "begin", got[0].Meta["handler"])
		assert.Equal(t, "other", got[1].Meta["handler"])
		assert.Equal(t, "success", got[2].Meta["handler"])
	})

	t.Run("action panic is a failure", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		rec := &recorder{}
		s.RegisterAsync(ref, nil, nil, rec.handler("failure"))
		require.NoError(t, f.AddStore("s", s))

		_, err := f.DispatchAsync(context.Background(), ref, nil, func(context.Context, []any) (any, error) {
			panic("kaboom")
		}).AwaitWithTimeout(time.Second)
		require.Error(t, err)

		got := rec.all()
		require.Len(t, got, 1)
		assert.Equal(t, action.PhaseFailure, got[0].Async)
	})

	t.Run("outcome is dispatched after the caller's context is cancelled", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		s := store.New(state{})
		ref := action.New("fetch")
		rec := &recorder{}
		s.RegisterAsync(ref, nil, rec.handler("success"), rec.handler("failure"))
		require.NoError(t, f.AddStore("s", s))

		ctx, cancel := context.WithCancel(context.Background())
		release := make(chan struct{})
		fut := f.DispatchAsync(ctx, ref, nil, func(context.Context, []any) (any, error) {
			<-release
			return "late", nil
		})
		cancel()
		close(release)

		v, err := fut.Await()
		require.NoError(t, err)
		assert.Equal(t, "late", v)
		require.Len(t, rec.all(), 1)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		f := flux.New()
		_, err := f.DispatchAsync(context.Background(), nil, nil, func(context.Context, []any) (any, error) {
			return nil, nil
		}).Await()
		assert.ErrorIs(t, err, flux.ErrInvalidConfig)

		_, err = f.DispatchAsync(context.Background(), action.New("x"), nil, nil).Await()
		assert.ErrorIs(t, err, flux.ErrInvalidConfig)
	})
}
