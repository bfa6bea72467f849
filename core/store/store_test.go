package store_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flux/core/action"
	"github.com/dmitrymomot/flux/core/dispatcher"
	"github.com/dmitrymomot/flux/core/store"
)

type State = map[string]any

// bind registers s with d the way the flux container does.
func bind[S any](d *dispatcher.Dispatcher, name string, s *store.Store[S]) dispatcher.Token {
	token := d.Register(s.HandleDispatch)
	s.Bind(name, token, d)
	return token
}

func TestTransaction(t *testing.T) {
	t.Parallel()

	t.Run("multiple SetState calls emit one merged change", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{"foo": "bar"})
		bind(d, "s", s)

		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.SetState(State{"bar": "baz"})
			s.SetState(State{"baz": "foo"})
			return nil
		})

		var changes []State
		s.AddListener(func(st State) { changes = append(changes, st) })

		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "X"}))

		want := State{"foo": "bar", "bar": "baz", "baz": "foo"}
		assert.Equal(t, want, s.State())
		require.Len(t, changes, 1)
		assert.Equal(t, want, changes[0])
	})

	t.Run("no mutation emits nothing", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{})
		bind(d, "s", s)

		called := false
		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			called = true
			return nil
		})

		emitted := 0
		s.AddListener(func(State) { emitted++ })

		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "X"}))
		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "other"}))

		assert.True(t, called)
		assert.Equal(t, 0, emitted)
	})

	t.Run("force update alone emits once", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{"n": 1})
		bind(d, "s", s)

		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.ForceUpdate()
			s.ForceUpdate()
			return nil
		})

		var changes []State
		s.AddListener(func(st State) { changes = append(changes, st) })

		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "X"}))
		require.Len(t, changes, 1)
		assert.Equal(t, State{"n": 1}, changes[0])
	})

	t.Run("pending state is invisible until commit", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{"n": 0})
		bind(d, "s", s)

		var during State
		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.SetState(State{"n": 1})
			during = s.State()
			return nil
		})

		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "X"}))
		assert.Equal(t, State{"n": 0}, during)
		assert.Equal(t, State{"n": 1}, s.State())
	})

	t.Run("replace state discards pending merges", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{"a": 1})
		bind(d, "s", s)

		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.SetState(State{"b": 2})
			s.ReplaceState(State{"c": 3})
			s.SetState(State{"d": 4})
			return nil
		})

		emitted := 0
		s.AddListener(func(State) { emitted++ })

		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "X"}))
		assert.Equal(t, State{"c": 3, "d": 4}, s.State())
		assert.Equal(t, 1, emitted)
	})

	t.Run("catch-all and exact handler share one transaction", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{})
		bind(d, "s", s)

		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.SetState(State{"exact": true})
			return nil
		})
		s.RegisterAll(func(context.Context, any, action.Payload) error {
			s.SetState(State{"all": true})
			return nil
		})

		emitted := 0
		s.AddListener(func(State) { emitted++ })

		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "X"}))
		assert.Equal(t, State{"exact": true, "all": true}, s.State())
		assert.Equal(t, 1, emitted)
	})

	t.Run("failing handler still commits and clears the transaction", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{})
		bind(d, "s", s)

		boom := errors.New("boom")
		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.SetState(State{"partial": true})
			return boom
		})

		emitted := 0
		s.AddListener(func(State) { emitted++ })

		err := d.Dispatch(context.Background(), action.Payload{ActionType: "X"})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, State{"partial": true}, s.State())
		assert.Equal(t, 1, emitted)

		// The store is no longer mid-transaction: direct updates apply at once.
		s.SetState(State{"after": true})
		assert.Equal(t, State{"partial": true, "after": true}, s.State())
		assert.Equal(t, 2, emitted)
	})

	t.Run("panicking handler still closes the transaction", func(t *testing.T) {
		t.Parallel()

		d := dispatcher.New()
		s := store.New(State{})
		bind(d, "s", s)

		s.Register(action.Type("X"), func(context.Context, any, action.Payload) error {
			s.SetState(State{"before": true})
			panic("kaboom")
		})

		err := d.Dispatch(context.Background(), action.Payload{ActionType: "X"})
		require.ErrorIs(t, err, dispatcher.ErrHandler)

		s.SetState(State{"after": true})
		assert.Equal(t, State{"before": true, "after": true}, s.State())
	})
}

func TestSetStateOutsideDispatch(t *testing.T) {
	t.Parallel()

	s := store.New(State{"a": 1})

	var changes []State
	id := s.AddListener(func(st State) { changes = append(changes, st) })

	s.SetState(State{"b": 2})
	s.ForceUpdate()

	require.Len(t, changes, 2)
	assert.Equal(t, State{"a": 1, "b": 2}, changes[0])
	assert.Equal(t, State{"a": 1, "b": 2}, changes[1])

	assert.Equal(t, 1, s.ListenerCount())
	assert.True(t, s.RemoveListener(id))
	s.SetState(State{"c": 3})
	assert.Len(t, changes, 2)
}

func TestSetStateDoesNotMutatePreviousSnapshot(t *testing.T) {
	t.Parallel()

	s := store.New(State{"a": 1})
	before := s.State()
	s.SetState(State{"b": 2})

	assert.Equal(t, State{"a": 1}, before)
}

func TestCustomMerge(t *testing.T) {
	t.Parallel()

	d := dispatcher.New()
	s := store.New("", store.WithMerge[string](store.Concat))
	bind(d, "log", s)

	s.Register(action.Type("append"), store.Typed(func(_ context.Context, line string) error {
		s.SetState(line)
		s.SetState("\n")
		return nil
	}))

	emitted := 0
	s.AddListener(func(string) { emitted++ })

	require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "append", Body: "one"}))
	require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "append", Body: "two"}))

	assert.Equal(t, "one\ntwo\n", s.State())
	assert.Equal(t, 2, emitted)
}

func TestWaitForStores(t *testing.T) {
	t.Parallel()

	d := dispatcher.New()
	prices := store.New(State{"total": 0})
	cart := store.New(State{})

	// Cart registers first but must read prices after they update.
	bind(d, "cart", cart)
	bind(d, "prices", prices)

	var order []string
	prices.Register(action.Type("add"), store.Typed(func(_ context.Context, n int) error {
		order = append(order, "prices")
		prices.SetState(State{"total": n})
		return nil
	}))
	cart.Register(action.Type("add"), func(ctx context.Context, _ any, _ action.Payload) error {
		if err := cart.WaitFor(ctx, prices); err != nil {
			return err
		}
		order = append(order, "cart")
		cart.SetState(State{"seen": prices.State()["total"]})
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "add", Body: 42}))
	assert.Equal(t, []string{"prices", "cart"}, order)
	assert.Equal(t, State{"seen": 42}, cart.State())
}

func TestWaitForNotBound(t *testing.T) {
	t.Parallel()

	a := store.New(State{})
	b := store.New(State{})
	assert.ErrorIs(t, a.WaitFor(context.Background(), b), store.ErrNotBound)

	d := dispatcher.New()
	bind(d, "a", a)
	assert.Equal(t, "a", a.Name())
	assert.NotEmpty(t, a.Token())

	a.Unbind()
	assert.Empty(t, a.Token())
	assert.ErrorIs(t, a.WaitFor(context.Background(), b), store.ErrNotBound)
}

func TestAsyncPhaseHandlers(t *testing.T) {
	t.Parallel()

	d := dispatcher.New()
	s := store.New(State{"loading": false})
	bind(d, "s", s)

	load := action.New("load")
	var beginArgs, successBody any
	s.RegisterAsync(load,
		func(_ context.Context, args any, _ action.Payload) error {
			beginArgs = args
			s.SetState(State{"loading": true})
			return nil
		},
		func(_ context.Context, body any, _ action.Payload) error {
			successBody = body
			s.SetState(State{"loading": false, "data": body})
			return nil
		},
		nil,
	)

	id := action.NewDispatchID()
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, action.Payload{ActionType: load.ActionType(), Async: action.PhaseBegin, ActionArgs: []any{"q"}, DispatchID: id}))
	assert.Equal(t, State{"loading": true}, s.State())
	assert.Equal(t, []any{"q"}, beginArgs)

	require.NoError(t, d.Dispatch(ctx, action.Payload{ActionType: load.ActionType(), Async: action.PhaseSuccess, Body: "rows", DispatchID: id}))
	assert.Equal(t, State{"loading": false, "data": "rows"}, s.State())
	assert.Equal(t, "rows", successBody)
}

func TestSerialization(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()

		s := store.New(State{"n": 1.0, "name": "x"})
		data, err := s.MarshalState()
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1,"name":"x"}`, string(data))

		restored := store.New(State{})
		emitted := 0
		restored.AddListener(func(State) { emitted++ })

		require.NoError(t, restored.UnmarshalState(data))
		assert.Equal(t, State{"n": 1.0, "name": "x"}, restored.State())
		assert.Equal(t, 1, emitted)

		assert.Error(t, restored.UnmarshalState([]byte("{")))
	})

	t.Run("custom serializer", func(t *testing.T) {
		t.Parallel()

		s := store.New(3, store.WithSerializer(
			func(n int) ([]byte, error) { return []byte(strings.Repeat("|", n)), nil },
			func(b []byte) (int, error) { return len(b), nil },
		))

		data, err := s.MarshalState()
		require.NoError(t, err)
		assert.Equal(t, "|||", string(data))

		require.NoError(t, s.UnmarshalState([]byte("|||||")))
		assert.Equal(t, 5, s.State())
	})
}

func TestWithBindings(t *testing.T) {
	t.Parallel()

	d := dispatcher.New()
	var s *store.Store[int]
	s = store.New(0, store.WithBindings[int](
		store.Binding{Action: action.Type("inc"), Handler: func(context.Context, any, action.Payload) error {
			s.SetState(s.State() + 1)
			return nil
		}},
	))
	bind(d, "counter", s)

	for i := range 3 {
		require.NoError(t, d.Dispatch(context.Background(), action.Payload{ActionType: "inc", Body: strconv.Itoa(i)}))
	}
	assert.Equal(t, 3, s.State())
}
