// Package batchloader coalesces per-key lookups: identical concurrent
// keys share one in-flight call, and every key requested within the
// same collection window is handed to a single batch function, which
// groups the keys by the upstream call's natural partition. A loader
// is constructed per logical scope (a subscription, a request) and
// passed by reference; there is no ambient or global loader state.
package batchloader

import (
	"context"
	"sync"
	"time"
)

const defaultWindow = 2 * time.Millisecond

// BatchFunc resolves a set of keys in one pass. Keys absent from the
// returned map resolve to the zero value, never an error; a failed
// call fails every key it covered.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

type thunk[V any] struct {
	done  chan struct{}
	value V
	err   error
}

type pending[K comparable, V any] struct {
	key   K
	thunk *thunk[V]
}

type Loader[K comparable, V any] struct {
	batch  BatchFunc[K, V]
	window time.Duration

	mu        sync.Mutex
	results   map[K]*thunk[V]
	queue     []pending[K, V]
	scheduled bool
}

type Option func(*options)

type options struct {
	window time.Duration
}

// WithWindow overrides the collection window during which concurrent
// keys are gathered into one batch.
func WithWindow(window time.Duration) Option {
	return func(o *options) {
		o.window = window
	}
}

func New[K comparable, V any](batch BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	o := options{window: defaultWindow}
	for _, opt := range opts {
		opt(&o)
	}

	return &Loader[K, V]{
		batch:   batch,
		window:  o.window,
		results: map[K]*thunk[V]{},
	}
}

// Load resolves one key, sharing the upstream call with every other
// key gathered in the same window. Completed results are memoized
// until Clear.
func (l *Loader[K, V]) Load(ctx context.Context, key K) (V, error) {
	l.mu.Lock()

	t, ok := l.results[key]
	if !ok {
		t = &thunk[V]{done: make(chan struct{})}
		l.results[key] = t
		l.queue = append(l.queue, pending[K, V]{key: key, thunk: t})

		if !l.scheduled {
			l.scheduled = true
			go l.dispatchAfterWindow()
		}
	}

	l.mu.Unlock()

	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Clear drops the memoized result for key so the next Load re-fetches.
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.results, key)
	l.mu.Unlock()
}

// ClearAll drops every memoized result.
func (l *Loader[K, V]) ClearAll() {
	l.mu.Lock()
	l.results = map[K]*thunk[V]{}
	l.mu.Unlock()
}

func (l *Loader[K, V]) dispatchAfterWindow() {
	time.Sleep(l.window)

	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	l.scheduled = false
	l.mu.Unlock()

	if len(queue) == 0 {
		return
	}

	keys := make([]K, len(queue))
	for i, entry := range queue {
		keys[i] = entry.key
	}

	// The batch outlives any single caller's context; callers waiting
	// in Load still honour their own cancellation.
	values, err := l.batch(context.Background(), keys)

	for _, entry := range queue {
		if err != nil {
			entry.thunk.err = err
		} else {
			entry.thunk.value = values[entry.key]
		}

		close(entry.thunk.done)
	}
}
