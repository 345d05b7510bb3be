package promise

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
	"github.com/stretchr/testify/require"
)

func TestPromise_FulfillThenGet(t *testing.T) {
	p := New([]string{"a", "b"})

	p.Fulfill("a", 42)

	value, err := p.Get("a")
	require.NoError(t, err)
	require.Equal(t, 42, value)
}

func TestPromise_FailThenGet(t *testing.T) {
	p := New([]string{"a"})
	wantErr := errors.New("boom")

	p.Fail("a", wantErr)

	value, err := p.Get("a")
	require.Nil(t, value)
	require.ErrorIs(t, err, wantErr)
}

func TestPromise_GetUnknownKey(t *testing.T) {
	p := New([]string{"a"})

	_, err := p.Get("missing")
	require.Error(t, err)
}

func TestPromise_GetBlocksUntilFulfilled(t *testing.T) {
	p := New([]string{"a"})

	var wg sync.WaitGroup
	wg.Add(1)
	var got any
	var gotErr error
	go func() {
		defer wg.Done()
		got, gotErr = p.Get("a")
	}()

	time.Sleep(20 * time.Millisecond)
	p.Fulfill("a", "done")
	wg.Wait()

	require.NoError(t, gotErr)
	require.Equal(t, "done", got)
}

// TestPromise_Monotonicity verifies that once a key is resolved, every
// subsequent Get/TryGet observes the same result, and concurrent waiters
// that raced the fulfillment all see the identical outcome instead of a
// mix of pending/ready states.
func TestPromise_Monotonicity(t *testing.T) {
	keys := []string{"x"}
	p := New(keys)

	const waiters = 20
	results := make([]any, waiters)
	errs := make([]error, waiters)

	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = p.Get("x")
		}()
	}

	p.Fulfill("x", "stable-value")
	wg.Wait()

	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "stable-value", results[i])
	}

	// Once resolved, the entry stays resolved: a late TryGet call still
	// observes the same value, never pending.
	value, err, ok := p.TryGet("x")
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "stable-value", value)
}

func TestPromise_TryGetPending(t *testing.T) {
	p := New([]string{"a"})

	value, err, ok := p.TryGet("a")
	require.False(t, ok)
	require.Nil(t, value)
	require.ErrorIs(t, err, herrors.ErrPending)
}

func TestPromise_TryGetUnknownKey(t *testing.T) {
	p := New([]string{"a"})

	_, err, ok := p.TryGet("missing")
	require.False(t, ok)
	require.Error(t, err)
}

func TestPromise_GetContextCanceled(t *testing.T) {
	p := New([]string{"a"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var gotErr error
	go func() {
		defer close(done)
		_, gotErr = p.GetContext(ctx, "a")
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	require.ErrorIs(t, gotErr, context.Canceled)
}

func TestPromise_GetContextFulfilled(t *testing.T) {
	p := New([]string{"a"})
	ctx := context.Background()

	p.Fulfill("a", 7)

	value, err := p.GetContext(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 7, value)
}

func TestPromise_Keys(t *testing.T) {
	p := New([]string{"a", "b", "c"})

	keys := p.Keys()
	require.ElementsMatch(t, []string{"a", "b", "c"}, keys)
}
