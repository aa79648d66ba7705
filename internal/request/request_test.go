package request

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_ResolveThenWait(t *testing.T) {
	req, res := New[int]()

	require.True(t, res.Resolve(42))

	v, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRequest_RejectThenWait(t *testing.T) {
	req, res := New[string]()
	boom := errors.New("boom")

	require.True(t, res.Reject(boom))

	v, err := req.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "", v)
}

func TestRequest_SecondResolutionIgnored(t *testing.T) {
	req, res := New[int]()

	require.True(t, res.Resolve(1))
	assert.False(t, res.Resolve(2))
	assert.False(t, res.Reject(errors.New("late")))

	v, err := req.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRequest_WaitHonoursContext(t *testing.T) {
	req, _ := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := req.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok, _ := req.Result()
	assert.False(t, ok, "request should still be pending")
}

func TestRequest_ResultPeek(t *testing.T) {
	req, res := New[bool]()

	_, ok, _ := req.Result()
	assert.False(t, ok)

	res.Resolve(true)

	v, ok, err := req.Result()
	require.True(t, ok)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestRequest_ThenBeforeResolution(t *testing.T) {
	req, res := New[int]()

	got := make(chan int, 1)
	req.Then(func(v int) { got <- v }, func(err error) { t.Errorf("unexpected error: %v", err) })

	res.Resolve(7)

	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("success continuation did not fire")
	}
}

func TestRequest_ThenAfterResolutionIsNotReentrant(t *testing.T) {
	req, res := New[int]()
	res.Reject(errors.New("failed"))

	var fired atomic.Bool
	done := make(chan struct{})
	req.Then(nil, func(err error) {
		fired.Store(true)
		close(done)
	})

	// Registration returned before the continuation ran, or at least the
	// continuation did not run on this goroutine.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("error continuation did not fire")
	}
	assert.True(t, fired.Load())
}

func TestRequest_ContinuationsFireOnce(t *testing.T) {
	req, res := New[int]()

	var calls atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		req.Then(func(int) {
			calls.Add(1)
			wg.Done()
		}, nil)
	}

	var resolvers sync.WaitGroup
	for i := 0; i < 10; i++ {
		resolvers.Add(1)
		go func(v int) {
			defer resolvers.Done()
			res.Resolve(v)
		}(i)
	}
	resolvers.Wait()
	wg.Wait()

	// Give any stray duplicate a chance to show up.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequest_ContinuationOrder(t *testing.T) {
	req, res := New[int]()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		req.Then(func(int) {
			mu.Lock()
			order = append(order, i)
			n := len(order)
			mu.Unlock()
			if n == 5 {
				close(done)
			}
		}, nil)
	}

	res.Resolve(0)
	<-done
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestResolvedAndRejected(t *testing.T) {
	v, err := Resolved("ok").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	boom := errors.New("boom")
	_, err = Rejected[int](boom).Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestResolver_Request(t *testing.T) {
	req, res := New[int]()
	assert.Same(t, req, res.Request())

	select {
	case <-req.Done():
		t.Fatal("done before resolution")
	default:
	}
	res.Resolve(1)
	<-req.Done()
}
