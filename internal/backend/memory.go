package backend

import (
	"context"
	"fmt"
	"sync"
)

// Op names a backend call, as recorded in Memory's call log.
type Op string

const (
	OpAdd    Op = "add"
	OpGet    Op = "get"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

// Call is one recorded backend call.
type Call struct {
	Op  Op
	Key Key // zero for add and clear
}

// String renders the call as "op" or "op(key)".
func (c Call) String() string {
	if c.Key == 0 {
		return string(c.Op)
	}
	return fmt.Sprintf("%s(%d)", c.Op, c.Key)
}

// Memory is an in-process Backend that records every call it receives.
// Values are copied on the way in and out.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	values map[Key][]byte
	next   Key
	calls  []Call
	closed bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[Key][]byte),
		next:   IndexKey + 1,
	}
}

func (m *Memory) record(op Op, key Key) error {
	m.calls = append(m.calls, Call{Op: op, Key: key})
	if m.closed {
		return fmt.Errorf("memory backend: %s: closed", op)
	}
	return nil
}

// Add implements Backend.
func (m *Memory) Add(ctx context.Context, value []byte) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpAdd, 0); err != nil {
		return 0, err
	}
	key := m.next
	m.next++
	m.values[key] = cloneBytes(value)
	return key, nil
}

// Get implements Backend.
func (m *Memory) Get(ctx context.Context, key Key) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpGet, key); err != nil {
		return nil, err
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

// Update implements Backend.
func (m *Memory) Update(ctx context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpUpdate, key); err != nil {
		return err
	}
	m.values[key] = cloneBytes(value)
	if key >= m.next {
		m.next = key + 1
	}
	return nil
}

// Remove implements Backend.
func (m *Memory) Remove(ctx context.Context, key Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpRemove, key); err != nil {
		return false, err
	}
	if _, ok := m.values[key]; !ok {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

// Clear implements Backend.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpClear, 0); err != nil {
		return err
	}
	m.values = make(map[Key][]byte)
	return nil
}

// Close implements Backend. Calls after Close fail.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns a copy of the call log.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountCalls returns how many logged calls match op and key. A zero key
// matches any key.
func (m *Memory) CountCalls(op Op, key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op && (key == 0 || c.Key == key) {
			n++
		}
	}
	return n
}

// ResetCalls empties the call log.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Len returns the number of stored values, the index slot included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.values)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
