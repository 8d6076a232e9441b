package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type State int

const (
	StateStarting State = iota
	StateActive
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StateCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// Poller repeatedly runs a fetch function at a fixed interval and emits each
// successful result on a channel. All emissions happen from a single
// goroutine, so consumers see them in tick order.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(context.Context) (T, error)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
}

func NewPoller[T any](name string, interval time.Duration, fetch func(context.Context) (T, error)) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		state:    StateStarting,
	}
}

func (p *Poller[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start performs one immediate fetch and then ticks at the configured
// interval until Stop is called or ctx is cancelled. The returned channel is
// closed once the poller shuts down. Fetch failures are logged and skipped.
func (p *Poller[T]) Start(ctx context.Context) <-chan T {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.state = StateActive
	p.mu.Unlock()

	out := make(chan T)

	go func() {
		defer close(out)
		defer p.markCancelled()

		p.tick(ctx, out)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx, out)
			}
		}
	}()

	return out
}

// Stop cancels the poll loop. The in-flight fetch is aborted via its context
// and nothing is emitted after cancellation.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (p *Poller[T]) markCancelled() {
	p.mu.Lock()
	p.state = StateCancelled
	p.mu.Unlock()
}

func (p *Poller[T]) tick(ctx context.Context, out chan<- T) {
	value, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		log.Error().Err(err).Str("poller", p.name).Msg("Poll failed")
		return
	}

	select {
	case <-ctx.Done():
	case out <- value:
	}
}
