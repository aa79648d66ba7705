// Package testutil provides test doubles for the contacts store.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/contactstore/internal/backend"
)

// Fault makes matching backend calls fail with Err.
type Fault struct {
	Op  backend.Op
	Key backend.Key // zero matches any key
	Err error

	// Times limits how often the fault fires. Zero means every time.
	Times int
}

func (f *Fault) matches(op backend.Op, key backend.Key) bool {
	return f.Op == op && (f.Key == 0 || f.Key == key)
}

// FaultyBackend wraps a backend and fails selected calls. A failed call never
// reaches the wrapped backend.
//
// Thread-safety: all methods are safe for concurrent use.
type FaultyBackend struct {
	backend.Backend

	mu       sync.Mutex
	faults   []*Fault
	holds    map[backend.Op]chan struct{}
	attempts []backend.Call
}

// NewFaultyBackend wraps b with no faults installed.
func NewFaultyBackend(b backend.Backend) *FaultyBackend {
	return &FaultyBackend{
		Backend: b,
		holds:   make(map[backend.Op]chan struct{}),
	}
}

// Fail installs a fault.
func (f *FaultyBackend) Fail(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, &fault)
}

// Heal removes every installed fault.
func (f *FaultyBackend) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = nil
}

// Hold blocks calls of op until the returned release func is called. The
// call is recorded as an attempt before it blocks.
func (f *FaultyBackend) Hold(op backend.Op) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[op] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.holds, op)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Attempts returns how many calls matching op and key were made, including
// failed ones. A zero key matches any key.
func (f *FaultyBackend) Attempts(op backend.Op, key backend.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.attempts {
		if c.Op == op && (key == 0 || c.Key == key) {
			n++
		}
	}
	return n
}

// Calls returns every call attempted so far, in order.
func (f *FaultyBackend) Calls() []backend.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.Call, len(f.attempts))
	copy(out, f.attempts)
	return out
}

func (f *FaultyBackend) before(ctx context.Context, op backend.Op, key backend.Key) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, backend.Call{Op: op, Key: key})
	hold := f.holds[op]

	var err error
	for _, fault := range f.faults {
		if !fault.matches(op, key) {
			continue
		}
		if fault.Times > 0 {
			fault.Times--
			if fault.Times == 0 {
				fault.Op = ""
			}
		}
		err = fault.Err
		break
	}
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Add implements backend.Backend.
func (f *FaultyBackend) Add(ctx context.Context, value []byte) (backend.Key, error) {
	if err := f.before(ctx, backend.OpAdd, 0); err != nil {
		return 0, err
	}
	return f.Backend.Add(ctx, value)
}

// Get implements backend.Backend.
func (f *FaultyBackend) Get(ctx context.Context, key backend.Key) ([]byte, error) {
	if err := f.before(ctx, backend.OpGet, key); err != nil {
		return nil, err
	}
	return f.Backend.Get(ctx, key)
}

// Update implements backend.Backend.
func (f *FaultyBackend) Update(ctx context.Context, key backend.Key, value []byte) error {
	if err := f.before(ctx, backend.OpUpdate, key); err != nil {
		return err
	}
	return f.Backend.Update(ctx, key, value)
}

// Remove implements backend.Backend.
func (f *FaultyBackend) Remove(ctx context.Context, key backend.Key) (bool, error) {
	if err := f.before(ctx, backend.OpRemove, key); err != nil {
		return false, err
	}
	return f.Backend.Remove(ctx, key)
}

// Clear implements backend.Backend.
func (f *FaultyBackend) Clear(ctx context.Context) error {
	if err := f.before(ctx, backend.OpClear, 0); err != nil {
		return err
	}
	return f.Backend.Clear(ctx)
}
