package dispatcher

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/flux/core/action"
)

// Callback receives every dispatched payload.
type Callback func(ctx context.Context, p action.Payload) error

// Token identifies a registered callback.
type Token string

// String implements fmt.Stringer.
func (t Token) String() string {
	return string(t)
}

// lastToken is shared by every dispatcher so tokens are unique per process.
var lastToken atomic.Uint64

func nextToken() Token {
	return Token("ID_" + strconv.FormatUint(lastToken.Add(1), 10))
}

// registry holds callbacks keyed by token, in insertion order.
type registry struct {
	mu        sync.RWMutex
	order     []Token
	callbacks map[Token]Callback
}

func newRegistry() *registry {
	return &registry{callbacks: make(map[Token]Callback)}
}

func (r *registry) add(cb Callback) Token {
	token := nextToken()

	r.mu.Lock()
	r.callbacks[token] = cb
	r.order = append(r.order, token)
	r.mu.Unlock()

	return token
}

func (r *registry) remove(token Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.callbacks[token]; !ok {
		return false
	}
	delete(r.callbacks, token)

	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) get(token Token) (Callback, bool) {
	r.mu.RLock()
	cb, ok := r.callbacks[token]
	r.mu.RUnlock()
	return cb, ok
}

// tokens returns a copy of the registration order.
func (r *registry) tokens() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Token, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
