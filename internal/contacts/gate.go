package contacts

import (
	"context"
	"sync"
)

// gateState is the lifecycle of a store's backend and index.
type gateState int

const (
	stateUninitialized gateState = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s gateState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attempt is one run of the load function; waiters block on done.
type attempt struct {
	done chan struct{}
	err  error
}

// gate runs a load function exactly once and lets any number of callers
// wait on it.
//
// Uninitialized -> Initializing -> Ready | Failed. Failed is sticky: the load
// is never retried until reset.
//
// Thread-safety: all methods are safe for concurrent use.
type gate struct {
	mu      sync.Mutex
	state   gateState
	current *attempt
}

// ensure returns nil once load has succeeded, running it if nobody has yet.
// Callers arriving during a load wait for its outcome, or for their own ctx.
// A load failure is reported to every caller as an INIT_FAILED error.
func (g *gate) ensure(ctx context.Context, load func(context.Context) error) error {
	g.mu.Lock()
	switch g.state {
	case stateReady:
		g.mu.Unlock()
		return nil
	case stateFailed:
		err := g.current.err
		g.mu.Unlock()
		return err
	case stateInitializing:
		a := g.current
		g.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a := &attempt{done: make(chan struct{})}
	g.current = a
	g.state = stateInitializing
	g.mu.Unlock()

	err := load(ctx)

	g.mu.Lock()
	if err != nil {
		a.err = newInitError(err)
		g.state = stateFailed
	} else {
		g.state = stateReady
	}
	close(a.done)
	g.mu.Unlock()

	return a.err
}

// ready reports whether a load has succeeded.
func (g *gate) ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == stateReady
}

// status returns the current state.
func (g *gate) status() gateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// reset returns the gate to Uninitialized so the next ensure loads again.
// Has no effect while a load is in flight; reports whether it reset.
func (g *gate) reset() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == stateInitializing {
		return false
	}
	g.state = stateUninitialized
	g.current = nil
	return true
}
