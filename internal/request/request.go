// Package request provides the single-resolution result handle returned by
// every contacts store operation.
//
// A Request is created pending and completes exactly once, either with a value
// or with an error. The write side is a separate Resolver so code that only
// awaits a result cannot complete it.
package request

import (
	"context"
	"sync"
)

// Request is the read side of a pending operation result.
//
// Thread-safety: all methods are safe for concurrent use.
type Request[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	value     T
	err       error
	callbacks []callback[T]
}

type callback[T any] struct {
	onSuccess func(T)
	onError   func(error)
}

// Resolver completes its Request. Only the first Resolve or Reject has any effect.
type Resolver[T any] struct {
	req *Request[T]
}

// New returns a pending Request and the Resolver that completes it.
func New[T any]() (*Request[T], *Resolver[T]) {
	req := &Request[T]{done: make(chan struct{})}
	return req, &Resolver[T]{req: req}
}

// Done returns a channel that is closed once the request has completed.
func (r *Request[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request completes or ctx is done.
// A ctx error is returned as-is and leaves the request untouched.
func (r *Request[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.outcome()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result reports the outcome without blocking. ok is false while pending.
func (r *Request[T]) Result() (value T, ok bool, err error) {
	select {
	case <-r.done:
		value, err = r.outcome()
		return value, true, err
	default:
		var zero T
		return zero, false, nil
	}
}

// Then registers continuations for success and failure. Either may be nil.
//
// Continuations never run on the registering goroutine: if the request has
// already completed they are scheduled on a new goroutine, otherwise they run
// on a new goroutine once it completes. Continuations registered together run
// in registration order.
func (r *Request[T]) Then(onSuccess func(T), onError func(error)) {
	cb := callback[T]{onSuccess: onSuccess, onError: onError}

	r.mu.Lock()
	if !r.resolved {
		r.callbacks = append(r.callbacks, cb)
		r.mu.Unlock()
		return
	}
	value, err := r.value, r.err
	r.mu.Unlock()

	go fire([]callback[T]{cb}, value, err)
}

func (r *Request[T]) outcome() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.err
}

func (r *Request[T]) complete(value T, err error) bool {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return false
	}
	r.resolved = true
	r.value = value
	r.err = err
	callbacks := r.callbacks
	r.callbacks = nil
	close(r.done)
	r.mu.Unlock()

	if len(callbacks) > 0 {
		go fire(callbacks, value, err)
	}
	return true
}

func fire[T any](callbacks []callback[T], value T, err error) {
	for _, cb := range callbacks {
		if err != nil {
			if cb.onError != nil {
				cb.onError(err)
			}
			continue
		}
		if cb.onSuccess != nil {
			cb.onSuccess(value)
		}
	}
}

// Resolve completes the request successfully with value.
// Returns false if the request had already completed.
func (r *Resolver[T]) Resolve(value T) bool {
	return r.req.complete(value, nil)
}

// Reject completes the request with err. A nil err is treated as success
// with the zero value. Returns false if the request had already completed.
func (r *Resolver[T]) Reject(err error) bool {
	var zero T
	return r.req.complete(zero, err)
}

// Request returns the request this resolver completes.
func (r *Resolver[T]) Request() *Request[T] {
	return r.req
}

// Resolved returns an already-succeeded request.
func Resolved[T any](value T) *Request[T] {
	req, res := New[T]()
	res.Resolve(value)
	return req
}

// Rejected returns an already-failed request.
func Rejected[T any](err error) *Request[T] {
	req, res := New[T]()
	res.Reject(err)
	return req
}
