package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SlideRuleEarth/h5coro-go/internal/driver"
)

// fakeDriver counts how many independent copies were produced, so tests
// can tell ThreadMode and ProcessMode apart by how many distinct Driver
// values workers actually see.
type fakeDriver struct {
	id       int
	copies   *int32
	closed   int32
	failCopy bool
}

func newFakeDriver() *fakeDriver {
	var n int32
	return &fakeDriver{id: 0, copies: &n}
}

func (d *fakeDriver) ReadRange(_ context.Context, _, _ int64) ([]byte, error) {
	return nil, nil
}

func (d *fakeDriver) Copy() (driver.Driver, error) {
	if d.failCopy {
		return nil, errors.New("copy failed")
	}
	n := atomic.AddInt32(d.copies, 1)
	return &fakeDriver{id: int(n), copies: d.copies}, nil
}

func (d *fakeDriver) Close() error {
	atomic.AddInt32(&d.closed, 1)
	return nil
}

func TestDispatch_BlockingCollectsAllResults(t *testing.T) {
	drv := newFakeDriver()
	o := New(drv, ThreadMode)

	reqs := []Request{
		{Key: "a", Read: func(_ context.Context, _ driver.Driver) (any, error) { return 1, nil }},
		{Key: "b", Read: func(_ context.Context, _ driver.Driver) (any, error) { return 2, nil }},
	}

	p := o.Dispatch(context.Background(), reqs, true)

	va, err := p.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, va)

	vb, err := p.Get("b")
	require.NoError(t, err)
	require.Equal(t, 2, vb)
}

func TestDispatch_FailureIsolatedPerRequest(t *testing.T) {
	drv := newFakeDriver()
	o := New(drv, ThreadMode)
	wantErr := errors.New("read failed")

	reqs := []Request{
		{Key: "ok", Read: func(_ context.Context, _ driver.Driver) (any, error) { return "fine", nil }},
		{Key: "bad", Read: func(_ context.Context, _ driver.Driver) (any, error) { return nil, wantErr }},
	}

	p := o.Dispatch(context.Background(), reqs, true)

	v, err := p.Get("ok")
	require.NoError(t, err)
	require.Equal(t, "fine", v)

	_, err = p.Get("bad")
	require.ErrorIs(t, err, wantErr)
}

func TestDispatch_ThreadModeSharesDriver(t *testing.T) {
	drv := newFakeDriver()
	o := New(drv, ThreadMode)

	seen := make(chan *fakeDriver, 2)
	reqs := []Request{
		{Key: "a", Read: func(_ context.Context, d driver.Driver) (any, error) {
			seen <- d.(*fakeDriver)
			return nil, nil
		}},
		{Key: "b", Read: func(_ context.Context, d driver.Driver) (any, error) {
			seen <- d.(*fakeDriver)
			return nil, nil
		}},
	}

	p := o.Dispatch(context.Background(), reqs, true)
	_, _ = p.Get("a")
	_, _ = p.Get("b")
	close(seen)

	for d := range seen {
		require.Same(t, drv, d)
	}
	require.EqualValues(t, 0, atomic.LoadInt32(drv.copies))
}

func TestDispatch_ProcessModeCopiesDriverPerRequest(t *testing.T) {
	drv := newFakeDriver()
	o := New(drv, ProcessMode)

	seen := make(chan *fakeDriver, 2)
	reqs := []Request{
		{Key: "a", Read: func(_ context.Context, d driver.Driver) (any, error) {
			seen <- d.(*fakeDriver)
			return nil, nil
		}},
		{Key: "b", Read: func(_ context.Context, d driver.Driver) (any, error) {
			seen <- d.(*fakeDriver)
			return nil, nil
		}},
	}

	p := o.Dispatch(context.Background(), reqs, true)
	_, _ = p.Get("a")
	_, _ = p.Get("b")
	close(seen)

	for d := range seen {
		require.NotSame(t, drv, d)
	}
	require.EqualValues(t, 2, atomic.LoadInt32(drv.copies))
}

func TestDispatch_ProcessModeCopyFailureFailsOnlyThatRequest(t *testing.T) {
	drv := newFakeDriver()
	drv.failCopy = true
	o := New(drv, ProcessMode)

	reqs := []Request{
		{Key: "a", Read: func(_ context.Context, _ driver.Driver) (any, error) { return 1, nil }},
	}

	p := o.Dispatch(context.Background(), reqs, true)
	_, err := p.Get("a")
	require.Error(t, err)
}

func TestDispatch_NonBlockingReturnsImmediately(t *testing.T) {
	drv := newFakeDriver()
	o := New(drv, ThreadMode)

	release := make(chan struct{})
	reqs := []Request{
		{Key: "a", Read: func(_ context.Context, _ driver.Driver) (any, error) {
			<-release
			return "done", nil
		}},
	}

	p := o.Dispatch(context.Background(), reqs, false)

	_, _, ok := p.TryGet("a")
	require.False(t, ok, "non-blocking dispatch must not wait for workers to finish")

	close(release)
	v, err := p.Get("a")
	require.NoError(t, err)
	require.Equal(t, "done", v)
}
