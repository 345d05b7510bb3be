// Package promise implements the per-dataset result latch that backs a
// concurrent multi-dataset read: each requested path gets one entry that
// starts pending, is filled exactly once by whichever worker finishes it,
// and unblocks every caller waiting on that path. Grounded on
// h5promise.py's H5Promise, with sync.Cond standing in for
// threading.Condition and a context-aware variant for cancelable callers.
package promise

import (
	"context"
	"sync"

	"github.com/SlideRuleEarth/h5coro-go/herrors"
)

type state int

const (
	pending state = iota
	ready
	errored
)

type entry struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state state
	value any
	err   error
}

func newEntry() *entry {
	e := &entry{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Promise tracks the outcome of one result per requested key (typically a
// dataset path), exactly like H5Promise tracks one H5Dataset per name.
type Promise struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates a Promise pre-registering one pending entry per key, so
// Get/GetContext on an unknown key fails fast instead of blocking forever.
func New(keys []string) *Promise {
	p := &Promise{entries: make(map[string]*entry, len(keys))}
	for _, k := range keys {
		p.entries[k] = newEntry()
	}
	return p
}

// Fulfill records a successful result for key and wakes any waiters.
// Fulfilling the same key twice is a programmer error and overwrites the
// previous result.
func (p *Promise) Fulfill(key string, value any) {
	p.withEntry(key, func(e *entry) {
		e.value = value
		e.state = ready
	})
}

// Fail records a failed result for key and wakes any waiters.
func (p *Promise) Fail(key string, err error) {
	p.withEntry(key, func(e *entry) {
		e.err = err
		e.state = errored
	})
}

func (p *Promise) withEntry(key string, mutate func(*entry)) {
	p.mu.RLock()
	e, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	mutate(e)
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Get blocks until key's result is available and returns it, exactly like
// H5Promise.waitOnResult followed by __getitem__.
func (p *Promise) Get(key string) (any, error) {
	p.mu.RLock()
	e, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return nil, herrors.FormatError("promise get", errUnknownKey(key))
	}

	e.mu.Lock()
	for e.state == pending {
		e.cond.Wait()
	}
	value, err := e.value, e.err
	e.mu.Unlock()
	return value, err
}

// GetContext blocks until key's result is available or ctx is done,
// whichever comes first. sync.Cond has no native context support, so a
// notifier goroutine bridges the condition variable to ctx.Done().
func (p *Promise) GetContext(ctx context.Context, key string) (any, error) {
	p.mu.RLock()
	e, ok := p.entries[key]
	p.mu.RUnlock()
	if !ok {
		return nil, herrors.FormatError("promise get", errUnknownKey(key))
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.cond.Broadcast()
			e.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	e.mu.Lock()
	defer e.mu.Unlock()
	for e.state == pending {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.cond.Wait()
	}
	if e.state == pending {
		return nil, ctx.Err()
	}
	return e.value, e.err
}

// TryGet returns the current result without blocking. ok is false, with
// herrors.ErrPending as the error, if the entry hasn't resolved yet.
func (p *Promise) TryGet(key string) (value any, err error, ok bool) {
	p.mu.RLock()
	e, found := p.entries[key]
	p.mu.RUnlock()
	if !found {
		return nil, herrors.FormatError("promise try-get", errUnknownKey(key)), false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == pending {
		return nil, herrors.ErrPending, false
	}
	return e.value, e.err, true
}

// Keys returns every key registered with this Promise, in no particular
// order, matching H5Promise's __iter__/keys().
func (p *Promise) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	return keys
}

type unknownKeyError string

func (e unknownKeyError) Error() string { return "unknown promise key: " + string(e) }

func errUnknownKey(key string) error { return unknownKeyError(key) }
