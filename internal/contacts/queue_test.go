package contacts

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpQueue_FIFO(t *testing.T) {
	q := newOpQueue()

	for _, name := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(operation{name: name}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		op, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, op.name)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestOpQueue_SignalsOnEnqueue(t *testing.T) {
	q := newOpQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(operation{name: "late"})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}

	op, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "late", op.name)
}

func TestOpQueue_Close(t *testing.T) {
	q := newOpQueue()
	q.Enqueue(operation{name: "queued"})

	q.Close()
	q.Close() // idempotent

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(operation{name: "rejected"}))

	// Closed signal channel never blocks.
	select {
	case <-q.Wait():
	default:
		t.Fatal("wait should not block after close")
	}

	// Already-queued operations are still delivered.
	op, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "queued", op.name)
}

func TestOpQueue_Drain(t *testing.T) {
	q := newOpQueue()
	var aborted []string
	for _, name := range []string{"A", "B"} {
		name := name
		q.Enqueue(operation{name: name, abort: func(error) { aborted = append(aborted, name) }})
	}

	ops := q.Drain()
	require.Len(t, ops, 2)
	for _, op := range ops {
		op.abort(errors.New("stopped"))
	}

	assert.Equal(t, []string{"A", "B"}, aborted)
	assert.Equal(t, 0, q.Len())
	assert.True(t, q.Closed())
}

func TestOpQueue_ConcurrentEnqueue(t *testing.T) {
	q := newOpQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.Enqueue(operation{name: "op"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
