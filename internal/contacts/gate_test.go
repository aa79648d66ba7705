package contacts

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

func TestGate_LoadsOnce(t *testing.T) {
	var g gate
	var loads atomic.Int32
	release := make(chan struct{})

	load := func(ctx context.Context) error {
		loads.Add(1)
		<-release
		return nil
	}

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.ensure(context.Background(), load)
		}(i)
	}

	require.Eventually(t, func() bool {
		return g.status() == stateInitializing
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, g.ready())

	// Ready: load is never called again.
	require.NoError(t, g.ensure(context.Background(), func(context.Context) error {
		t.Fatal("load called after ready")
		return nil
	}))
}

func TestGate_FailureIsSticky(t *testing.T) {
	var g gate
	boom := errors.New("boom")
	calls := 0

	load := func(context.Context) error {
		calls++
		return boom
	}

	err := g.ensure(context.Background(), load)
	require.Error(t, err)
	assert.True(t, IsInitError(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, stateFailed, g.status())

	err2 := g.ensure(context.Background(), load)
	assert.Same(t, err, err2)
	assert.Equal(t, 1, calls)
}

func TestGate_WaiterHonoursContext(t *testing.T) {
	var g gate
	release := make(chan struct{})
	defer close(release)

	go func() {
		_ = g.ensure(context.Background(), func(context.Context) error {
			<-release
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		return g.status() == stateInitializing
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := g.ensure(ctx, func(context.Context) error {
		t.Fatal("second load started")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGate_Reset(t *testing.T) {
	var g gate
	require.Error(t, g.ensure(context.Background(), func(context.Context) error {
		return errors.New("first try")
	}))

	assert.True(t, g.reset())
	assert.Equal(t, stateUninitialized, g.status())

	require.NoError(t, g.ensure(context.Background(), func(context.Context) error {
		return nil
	}))
	assert.True(t, g.ready())
}

func TestGate_ResetIgnoredWhileLoading(t *testing.T) {
	var g gate
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- g.ensure(context.Background(), func(context.Context) error {
			<-release
			return nil
		})
	}()
	require.Eventually(t, func() bool {
		return g.status() == stateInitializing
	}, time.Second, time.Millisecond)

	assert.False(t, g.reset())
	assert.Equal(t, stateInitializing, g.status())

	close(release)
	require.NoError(t, <-done)
	assert.True(t, g.ready())
}

func TestGateState_String(t *testing.T) {
	tests := []struct {
		state gateState
		want  string
	}{
		{stateUninitialized, "uninitialized"},
		{stateInitializing, "initializing"},
		{stateReady, "ready"},
		{stateFailed, "failed"},
		{gateState(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
